package processormain

import (
	"context"
	"time"

	log "github.com/golang/glog"
	"github.com/robfig/cron"

	"github.com/joincivil/civil-debate-processor/pkg/utils"
)

const (
	checkRunSecs = 60
)

func checkCron(cr *cron.Cron) {
	entries := cr.Entries()
	for _, entry := range entries {
		log.Infof("Proc run times: prev: %v, next: %v\n", entry.Prev, entry.Next)
	}
}

func runProcessorCron(config *utils.ProcessorConfig, persisters *InitializedPersisters,
	services *InitializedServices) {
	err := RunProcessor(context.Background(), config, persisters, services)
	if err != nil {
		log.Errorf("Error running processor: err: %v", err)
	}
}

// ProcessorCronMain contains the logic to run the processor using a cronjob.
// Blocks until the process is interrupted.
func ProcessorCronMain(config *utils.ProcessorConfig, persisters *InitializedPersisters,
	services *InitializedServices) error {
	schedule, err := utils.CronParser.Parse(config.CronConfig)
	if err != nil {
		return err
	}
	cr := cron.New()
	cr.Schedule(schedule, cron.FuncJob(func() { runProcessorCron(config, persisters, services) }))
	cr.Start()
	defer cr.Stop()

	quitChan := make(chan bool, 1)
	setupKillNotify(quitChan)

	ticker := time.NewTicker(checkRunSecs * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			checkCron(cr)
		case <-quitChan:
			log.Infof("Quitting")
			return nil
		}
	}
}
