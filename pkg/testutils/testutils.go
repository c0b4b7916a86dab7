// Package testutils contains in-memory fakes shared by the tests
package testutils // import "github.com/joincivil/civil-debate-processor/pkg/testutils"

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/joincivil/civil-debate-processor/pkg/model"
)

// NewMemoryStore returns an empty in-memory state store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		docs:      map[string][]byte{},
		ReadErrs:  map[string]error{},
		WriteErrs: map[string]error{},
	}
}

// MemoryStore is a state store backed by a map. ReadErrs and WriteErrs
// inject failures for specific keys.
type MemoryStore struct {
	docs      map[string][]byte
	mutex     sync.Mutex
	ReadErrs  map[string]error
	WriteErrs map[string]error
	Writes    int
}

// Read returns the document at key
func (m *MemoryStore) Read(ctx context.Context, key string) ([]byte, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	if err, ok := m.ReadErrs[key]; ok {
		return nil, err
	}
	doc, ok := m.docs[key]
	if !ok {
		return nil, model.ErrDocumentNotFound
	}
	cp := make([]byte, len(doc))
	copy(cp, doc)
	return cp, nil
}

// Write stores a copy of the document at key
func (m *MemoryStore) Write(ctx context.Context, key string, doc []byte) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	if err, ok := m.WriteErrs[key]; ok {
		return err
	}
	cp := make([]byte, len(doc))
	copy(cp, doc)
	m.docs[key] = cp
	m.Writes++
	return nil
}

// Put sets a raw document without counting a write
func (m *MemoryStore) Put(key string, doc string) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.docs[key] = []byte(doc)
}

// Get returns the raw document at key
func (m *MemoryStore) Get(key string) (string, bool) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	doc, ok := m.docs[key]
	return string(doc), ok
}

// Keys returns the stored keys that start with prefix in sorted order
func (m *MemoryStore) Keys(ctx context.Context, prefix string) ([]string, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	keys := []string{}
	for key := range m.docs {
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

// ScriptedCompleter is a text completer whose answers come from Responder.
// Every request is recorded.
type ScriptedCompleter struct {
	Responder func(req *model.CompletionRequest) (string, error)
	Requests  []*model.CompletionRequest
	mutex     sync.Mutex
}

// Complete records the request and returns the Responder's answer
func (s *ScriptedCompleter) Complete(ctx context.Context, req *model.CompletionRequest) (string, error) {
	s.mutex.Lock()
	s.Requests = append(s.Requests, req)
	s.mutex.Unlock()
	if s.Responder == nil {
		return "", nil
	}
	return s.Responder(req)
}

// RequestsContaining returns the recorded requests whose user prompt
// contains substr
func (s *ScriptedCompleter) RequestsContaining(substr string) []*model.CompletionRequest {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	matched := []*model.CompletionRequest{}
	for _, req := range s.Requests {
		if strings.Contains(req.UserPrompt, substr) {
			matched = append(matched, req)
		}
	}
	return matched
}

// PostReplyCall is a recorded call to FakePlatform.PostReply
type PostReplyCall struct {
	CommentID string
	Text      string
}

// NewFakePlatform returns a social platform fake with no data
func NewFakePlatform() *FakePlatform {
	return &FakePlatform{
		Captions:     map[string]string{},
		Replies:      map[string][]*model.Reply{},
		PostReplyErr: map[string]error{},
	}
}

// FakePlatform is an in-memory social platform
type FakePlatform struct {
	Captions     map[string]string
	CaptionErr   error
	Replies      map[string][]*model.Reply
	RepliesErr   error
	PostReplyErr map[string]error
	PostCalls    []*PostReplyCall
	CaptionCalls int
	mutex        sync.Mutex
}

// PostCaption returns the stored caption for the post
func (f *FakePlatform) PostCaption(ctx context.Context, postID string) (string, error) {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	f.CaptionCalls++
	if f.CaptionErr != nil {
		return "", f.CaptionErr
	}
	return f.Captions[postID], nil
}

// CommentReplies returns the stored replies for the comment
func (f *FakePlatform) CommentReplies(ctx context.Context, commentID string) ([]*model.Reply, error) {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	if f.RepliesErr != nil {
		return nil, f.RepliesErr
	}
	return f.Replies[commentID], nil
}

// PostReply records the call and returns a reply id
func (f *FakePlatform) PostReply(ctx context.Context, commentID string, text string) (*model.PostedReply, error) {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	f.PostCalls = append(f.PostCalls, &PostReplyCall{CommentID: commentID, Text: text})
	if err, ok := f.PostReplyErr[commentID]; ok {
		return nil, err
	}
	return &model.PostedReply{ID: fmt.Sprintf("reply-%v", len(f.PostCalls))}, nil
}

// RecordingPublisher records published moderation events
type RecordingPublisher struct {
	Events []*model.ModerationEvent
	Err    error
	mutex  sync.Mutex
}

// PublishModerationEvent records the event
func (r *RecordingPublisher) PublishModerationEvent(ctx context.Context, event *model.ModerationEvent) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	if r.Err != nil {
		return r.Err
	}
	r.Events = append(r.Events, event)
	return nil
}
