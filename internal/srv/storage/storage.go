// Package storage shares the display controllers of an application between goroutines and, through
// the remote proxy, between processes.
package storage

import (
	"maps"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/jypelle/papier/apimodel"
	"github.com/jypelle/papier/internal/srv/controller"
	"github.com/sirupsen/logrus"
)

// AppStorage maps display ids to controllers.
//
// usage is the global gate: single controller access holds it shared, whole map updates hold it
// exclusively and so wait for in-flight accesses to drain. Each controller has its own lock, created on
// first use: shared for reads, exclusive for mutations, so unrelated controllers never block each other.
type AppStorage struct {
	id uuid.UUID

	usage sync.RWMutex

	mapLock     sync.RWMutex
	controllers map[string]controller.Controller
	locks       map[string]*sync.RWMutex
}

func NewAppStorage() *AppStorage {
	return &AppStorage{
		id:          uuid.New(),
		controllers: make(map[string]controller.Controller),
		locks:       make(map[string]*sync.RWMutex),
	}
}

func (s *AppStorage) Id() uuid.UUID {
	return s.id
}

// DisplayControllers returns a snapshot of the map. It may be stale as soon as it is returned.
func (s *AppStorage) DisplayControllers() map[string]controller.Controller {
	s.mapLock.RLock()
	defer s.mapLock.RUnlock()
	return maps.Clone(s.controllers)
}

func (s *AppStorage) DisplayIds() []string {
	s.mapLock.RLock()
	defer s.mapLock.RUnlock()
	ids := make([]string, 0, len(s.controllers))
	for id := range s.controllers {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// UpdateDisplayControllers gives fn exclusive access to the whole map, once every single controller
// access has finished. Changes made by fn are kept even when it fails.
func (s *AppStorage) UpdateDisplayControllers(fn func(controllers map[string]controller.Controller) error) error {
	s.usage.Lock()
	defer s.usage.Unlock()

	s.mapLock.Lock()
	defer s.mapLock.Unlock()

	logrus.Debugf("Update display controllers of app %s", s.id)
	err := fn(s.controllers)
	for id := range s.locks {
		if _, ok := s.controllers[id]; !ok {
			delete(s.locks, id)
		}
	}
	return err
}

// UseDisplayController gives fn shared access to one controller.
func (s *AppStorage) UseDisplayController(id string, fn func(c controller.Controller) error) error {
	s.usage.RLock()
	defer s.usage.RUnlock()

	c, lock, err := s.lookup(id)
	if err != nil {
		return err
	}
	lock.RLock()
	defer lock.RUnlock()
	return fn(c)
}

// UpdateDisplayController gives fn exclusive access to one controller.
func (s *AppStorage) UpdateDisplayController(id string, fn func(c controller.Controller) error) error {
	s.usage.RLock()
	defer s.usage.RUnlock()

	c, lock, err := s.lookup(id)
	if err != nil {
		return err
	}
	lock.Lock()
	defer lock.Unlock()
	return fn(c)
}

func (s *AppStorage) lookup(id string) (controller.Controller, *sync.RWMutex, error) {
	s.mapLock.RLock()
	c, ok := s.controllers[id]
	lock := s.locks[id]
	s.mapLock.RUnlock()
	if !ok {
		return nil, nil, apimodel.NotFoundf("display %s", id)
	}
	if lock != nil {
		return c, lock, nil
	}

	s.mapLock.Lock()
	defer s.mapLock.Unlock()
	lock, ok = s.locks[id]
	if !ok {
		lock = &sync.RWMutex{}
		s.locks[id] = lock
	}
	return c, lock, nil
}
