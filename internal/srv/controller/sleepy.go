package controller

import (
	"sync"
	"time"

	"github.com/jypelle/papier/internal/srv/event"
	"github.com/sirupsen/logrus"
)

// SleepyController puts the driver to sleep after a period without display change.
type SleepyController struct {
	Listenable

	after    time.Duration
	listener event.Listener[Event]

	lock       sync.Mutex
	armed      bool
	sleepTimer *time.Timer
	generation uint64
}

var _ Listenable = (*SleepyController)(nil)

func NewSleepyController(c Listenable, after time.Duration) *SleepyController {
	s := &SleepyController{Listenable: c, after: after}
	s.listener = event.ListenerFunc(s.onDisplayChange)
	return s
}

func (s *SleepyController) Type() string {
	return "sleepy(" + s.Listenable.Type() + ")"
}

func (s *SleepyController) Unwrap() Controller {
	return s.Listenable
}

func (s *SleepyController) After() time.Duration {
	return s.after
}

// Start arms the sleep timer on every display change. It is a no-op when already armed.
func (s *SleepyController) Start() error {
	s.lock.Lock()
	defer s.lock.Unlock()
	if s.armed {
		return nil
	}
	if err := s.Listenable.AddListener(s.listener, DisplayChangeEvent); err != nil {
		return err
	}
	s.armed = true
	return nil
}

// Stop cancels the pending sleep. A sleep already firing completes before Stop returns.
func (s *SleepyController) Stop() {
	s.lock.Lock()
	defer s.lock.Unlock()
	if !s.armed {
		return
	}
	s.armed = false
	s.generation++
	if s.sleepTimer != nil {
		s.sleepTimer.Stop()
		s.sleepTimer = nil
	}
	s.Listenable.RemoveListener(s.listener, DisplayChangeEvent)
}

func (s *SleepyController) onDisplayChange(ev Event) error {
	s.lock.Lock()
	defer s.lock.Unlock()
	if !s.armed {
		return nil
	}
	if s.sleepTimer != nil {
		s.sleepTimer.Stop()
	}
	s.generation++
	generation := s.generation
	s.sleepTimer = time.AfterFunc(s.after, func() {
		s.fire(generation)
	})
	return nil
}

func (s *SleepyController) fire(generation uint64) {
	s.lock.Lock()
	defer s.lock.Unlock()
	if !s.armed || generation != s.generation {
		return
	}
	s.sleepTimer = nil
	logrus.WithField("display", s.Id()).Infof("No display change for %v, going to sleep", s.after)
	if err := s.Driver().Sleep(); err != nil {
		logrus.WithField("display", s.Id()).Warnf("Unable to put display to sleep: %v", err)
	}
}
