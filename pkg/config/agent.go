/*
Copyright 2023 The Nanosoldier Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package config

import (
	"crypto/md5"
	"os"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// Agent watches a path and automatically reloads the config stored therein.
type Agent struct {
	mut sync.RWMutex // do not export Lock, etc methods
	c   *Config
}

// Start will begin polling the config file at the path. If the first load
// fails, Start will return the error and abort. Future load failures log
// and keep the old config.
func (ca *Agent) Start(path string) error {
	c, err := Load(path)
	if err != nil {
		return err
	}
	ca.Set(c)
	go func() {
		var lastModTime time.Time
		// Rarely, if two changes happen in the same second, mtime will
		// be the same for the second change, and an mtime-based check would
		// not break out of the loop, so we use a content checksum as well.
		var lastSum [md5.Size]byte
		for range time.Tick(1 * time.Second) {
			stat, err := os.Stat(path)
			if err != nil {
				logrus.WithField("path", path).WithError(err).Error("Error loading config.")
				continue
			}

			recentModTime := stat.ModTime()
			if !recentModTime.After(lastModTime) {
				continue
			}

			b, err := os.ReadFile(path)
			if err != nil {
				logrus.WithField("path", path).WithError(err).Error("Error loading config.")
				continue
			}
			sum := md5.Sum(b)
			if sum == lastSum {
				lastModTime = recentModTime
				continue
			}

			c, err := Load(path)
			if err != nil {
				logrus.WithField("path", path).WithError(err).Error("Error loading config.")
				continue
			}
			lastModTime = recentModTime
			lastSum = sum
			ca.Set(c)
		}
	}()
	return nil
}

// Config returns the latest config. Do not modify the config.
func (ca *Agent) Config() *Config {
	ca.mut.RLock()
	defer ca.mut.RUnlock()
	return ca.c
}

// Set sets the config. Useful for testing.
func (ca *Agent) Set(c *Config) {
	ca.mut.Lock()
	defer ca.mut.Unlock()
	ca.c = c
}
