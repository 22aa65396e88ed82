package scheduler

import (
	"time"

	"github.com/go-co-op/gocron"

	"social-autopost-platform/internal/logger"
)

// Scheduler runs in-process interval jobs such as the heartbeat trigger.
type Scheduler struct {
	scheduler *gocron.Scheduler
}

func NewScheduler(loc *time.Location) *Scheduler {
	if loc == nil {
		loc = time.UTC
	}
	s := gocron.NewScheduler(loc)
	s.TagsUnique()
	// a slow run must not overlap the next one
	s.SingletonModeAll()

	return &Scheduler{scheduler: s}
}

func (s *Scheduler) Start() {
	s.scheduler.StartAsync()
}

func (s *Scheduler) Stop() {
	s.scheduler.Stop()
}

// ScheduleInterval runs job every duration, starting immediately. Job errors
// are logged; the job keeps its schedule.
func (s *Scheduler) ScheduleInterval(tag string, duration time.Duration, job func() error) error {
	_, err := s.scheduler.Every(duration).Tag(tag).Do(func() {
		if err := job(); err != nil {
			logger.Error("Scheduled job failed", "tag", tag, "error", err)
		}
	})
	return err
}

// Tags lists the tags of the registered jobs.
func (s *Scheduler) Tags() []string {
	return s.scheduler.GetAllTags()
}
