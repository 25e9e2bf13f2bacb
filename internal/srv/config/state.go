package config

import (
	"os"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

const saveDelay = 10 * time.Second

type ServerState struct {
	serverStateConfig     ServerStateConfig
	lock                  sync.RWMutex
	backupTimer           *time.Timer
	completeStateFilename string
}

func NewServerState(completeStateFilename string) (*ServerState, error) {
	serverState := &ServerState{
		completeStateFilename: completeStateFilename,
		serverStateConfig:     ServerStateConfig{CurrentImages: make(map[string]string)},
	}

	rawConfig, err := os.ReadFile(completeStateFilename)
	if err == nil {
		// Interpret state file
		if err = yaml.Unmarshal(rawConfig, &serverState.serverStateConfig); err != nil {
			return nil, err
		}
		if serverState.serverStateConfig.CurrentImages == nil {
			serverState.serverStateConfig.CurrentImages = make(map[string]string)
		}
	} else {
		logrus.Infof("No state file yet: %s", completeStateFilename)
	}

	return serverState, nil
}

// CurrentImage returns the id of the last image shown on a display, or "" when it was blank.
func (ss *ServerState) CurrentImage(displayId string) string {
	ss.lock.RLock()
	defer ss.lock.RUnlock()

	return ss.serverStateConfig.CurrentImages[displayId]
}

func (ss *ServerState) SetCurrentImage(displayId string, imageId string) {
	ss.lock.Lock()
	defer ss.lock.Unlock()

	if ss.serverStateConfig.CurrentImages[displayId] == imageId {
		return
	}
	if imageId == "" {
		delete(ss.serverStateConfig.CurrentImages, displayId)
	} else {
		ss.serverStateConfig.CurrentImages[displayId] = imageId
	}
	ss.scheduleSave()
}

func (ss *ServerState) scheduleSave() {
	if ss.backupTimer == nil {
		ss.backupTimer = time.AfterFunc(saveDelay, func() {
			ss.lock.Lock()
			defer ss.lock.Unlock()
			ss.save()
		})
	} else {
		ss.backupTimer.Reset(saveDelay)
	}
}

func (ss *ServerState) save() {
	logrus.Infof("Save state file: %s", ss.completeStateFilename)
	rawConfig, err := yaml.Marshal(&ss.serverStateConfig)
	if err != nil {
		logrus.Errorf("Unable to serialize state file: %v", err)
		return
	}
	if err = os.WriteFile(ss.completeStateFilename, rawConfig, 0660); err != nil {
		logrus.Errorf("Unable to save state file: %v", err)
	}
}

func (ss *ServerState) FlushSave() {
	ss.lock.Lock()
	defer ss.lock.Unlock()
	if ss.backupTimer != nil {
		if ss.backupTimer.Stop() {
			ss.save()
		}
	}
}

type ServerStateConfig struct {
	CurrentImages map[string]string `yaml:"current_images"`
}
