package persistence // import "github.com/joincivil/civil-debate-processor/pkg/persistence"

import (
	"context"

	"github.com/joincivil/civil-debate-processor/pkg/model"
)

type modeDocument struct {
	AutoMode bool `json:"auto_mode"`
}

// NewModeFlag returns the auto post flag kept in store. defaultAuto is
// returned until a flag has been saved.
func NewModeFlag(store model.StateStore, defaultAuto bool) *ModeFlag {
	return &ModeFlag{
		store:       store,
		defaultAuto: defaultAuto,
	}
}

// ModeFlag is the account level auto post flag
type ModeFlag struct {
	store       model.StateStore
	defaultAuto bool
}

// AutoMode returns true if new entries should be created approved
func (m *ModeFlag) AutoMode(ctx context.Context) (bool, error) {
	doc := &modeDocument{}
	found, err := LoadDocument(ctx, m.store, ModeKey, doc)
	if err != nil {
		return false, err
	}
	if !found {
		return m.defaultAuto, nil
	}
	return doc.AutoMode, nil
}

// SetAutoMode saves the auto post flag
func (m *ModeFlag) SetAutoMode(ctx context.Context, auto bool) error {
	return SaveDocument(ctx, m.store, ModeKey, &modeDocument{AutoMode: auto})
}
