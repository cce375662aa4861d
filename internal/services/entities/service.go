// Package entities provides the tracked-entity catalog, loaded from a JSON
// file that is watched for external changes.
package entities

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/j-veylop/rewardgate/internal/logger"
	"github.com/j-veylop/rewardgate/internal/models"
	"github.com/j-veylop/rewardgate/internal/services/identity"
)

// EntitiesFile is the on-disk catalog format.
type EntitiesFile struct {
	Entities []models.TrackedEntity `json:"entities"`
	Version  int                    `json:"version,omitempty"`
}

// Event represents an entities service event.
type Event struct {
	Type  EventType
	Error error
}

// EventType defines the type of entities event.
type EventType int

const (
	EventEntitiesLoaded EventType = iota
	EventEntitiesChanged
	EventError
)

// Service holds the catalog and keeps it in sync with the file.
type Service struct {
	mu            sync.RWMutex
	tracked       []models.TrackedEntity
	unresolved    []models.TrackedEntity
	blocked       map[string]bool
	filePath      string
	watcher       *fsnotify.Watcher
	eventChan     chan Event
	stopChan      chan struct{}
	debounceTimer *time.Timer
	resolver      *identity.Resolver
}

// Option configures a Service.
type Option func(*Service)

// WithResolver sets the identity resolver, typically one with persisted
// bindings.
func WithResolver(r *identity.Resolver) Option {
	return func(s *Service) { s.resolver = r }
}

// New loads the catalog at filePath, creating an empty one if needed, and
// starts watching it.
func New(filePath string, opts ...Option) (*Service, error) {
	if filePath == "" {
		return nil, errors.New("entities file path is required")
	}

	s := &Service{
		filePath:  filePath,
		blocked:   make(map[string]bool),
		eventChan: make(chan Event, 100),
		stopChan:  make(chan struct{}),
		resolver:  identity.NewResolver(nil),
	}
	for _, opt := range opts {
		opt(s)
	}

	dir := filepath.Dir(filePath)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := s.load(); err != nil {
		if os.IsNotExist(err) {
			if err := writeFile(filePath, EntitiesFile{Entities: []models.TrackedEntity{}, Version: 1}); err != nil {
				return nil, fmt.Errorf("failed to create entities file: %w", err)
			}
		} else {
			return nil, fmt.Errorf("failed to load entities: %w", err)
		}
	}

	if err := s.startWatcher(); err != nil {
		return nil, fmt.Errorf("failed to start file watcher: %w", err)
	}

	s.sendEvent(Event{Type: EventEntitiesLoaded})

	return s, nil
}

// Events returns the event channel.
func (s *Service) Events() <-chan Event {
	return s.eventChan
}

// Tracked returns the entities with a resolved logical identity, sorted by
// display name.
func (s *Service) Tracked() []models.TrackedEntity {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.TrackedEntity, len(s.tracked))
	copy(out, s.tracked)
	return out
}

// Unresolved returns entities skipped until identity resolution succeeds.
func (s *Service) Unresolved() []models.TrackedEntity {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.TrackedEntity, len(s.unresolved))
	copy(out, s.unresolved)
	return out
}

// Get returns a tracked entity by logical ID.
func (s *Service) Get(id string) (models.TrackedEntity, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, e := range s.tracked {
		if e.LogicalID == id {
			return e, true
		}
	}
	return models.TrackedEntity{}, false
}

// Contains reports whether an entity is currently blocked. It implements the
// read-only blocked set consulted by the direct fire recorder.
func (s *Service) Contains(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.blocked[id]
}

// Count returns the number of tracked entities.
func (s *Service) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.tracked)
}

// Path returns the catalog file path.
func (s *Service) Path() string {
	return s.filePath
}

func parse(data []byte) ([]models.TrackedEntity, error) {
	var file EntitiesFile
	if err := json.Unmarshal(data, &file); err == nil {
		return file.Entities, nil
	}

	// Bare array form.
	var list []models.TrackedEntity
	if err := json.Unmarshal(data, &list); err == nil {
		return list, nil
	}

	return nil, fmt.Errorf("failed to parse entities file: invalid format")
}

func (s *Service) load() error {
	data, err := os.ReadFile(s.filePath)
	if err != nil {
		return err
	}

	list, err := parse(data)
	if err != nil {
		return err
	}

	tracked, unresolved := s.resolver.ResolveAll(list)
	sort.SliceStable(tracked, func(i, j int) bool {
		return tracked[i].Name() < tracked[j].Name()
	})

	blocked := make(map[string]bool, len(tracked))
	for _, e := range tracked {
		if e.Blocked {
			blocked[e.LogicalID] = true
		}
	}

	if len(unresolved) > 0 {
		logger.Warn("entities without identity skipped", "count", len(unresolved))
	}

	s.mu.Lock()
	s.tracked = tracked
	s.unresolved = unresolved
	s.blocked = blocked
	s.mu.Unlock()
	return nil
}

func writeFile(path string, file EntitiesFile) error {
	data, err := json.MarshalIndent(file, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal entities: %w", err)
	}

	tmpFile := path + ".tmp"
	if err := os.WriteFile(tmpFile, data, 0600); err != nil {
		return fmt.Errorf("failed to write temp file: %w", err)
	}

	if err := os.Rename(tmpFile, path); err != nil {
		if removeErr := os.Remove(tmpFile); removeErr != nil {
			logger.Error("failed to remove temp file", "error", removeErr)
		}
		return fmt.Errorf("failed to rename temp file: %w", err)
	}
	return nil
}

// startWatcher starts the file system watcher.
func (s *Service) startWatcher() error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	s.watcher = watcher

	// Watch the directory (to catch file creation/deletion)
	dir := filepath.Dir(s.filePath)
	if err := watcher.Add(dir); err != nil {
		if closeErr := watcher.Close(); closeErr != nil {
			logger.Error("failed to close watcher", "error", closeErr)
		}
		return err
	}

	go s.watchLoop()
	return nil
}

// watchLoop handles file system events with debouncing.
func (s *Service) watchLoop() {
	const debounceInterval = 100 * time.Millisecond

	for {
		select {
		case event, ok := <-s.watcher.Events:
			if !ok {
				return
			}

			if filepath.Base(event.Name) != filepath.Base(s.filePath) {
				continue
			}

			if event.Op&(fsnotify.Write|fsnotify.Create) != 0 {
				s.mu.Lock()
				if s.debounceTimer != nil {
					s.debounceTimer.Stop()
				}
				s.debounceTimer = time.AfterFunc(debounceInterval, s.handleFileChange)
				s.mu.Unlock()
			}

		case err, ok := <-s.watcher.Errors:
			if !ok {
				return
			}
			s.sendEvent(Event{Type: EventError, Error: err})

		case <-s.stopChan:
			return
		}
	}
}

// handleFileChange reloads the catalog after an external change.
func (s *Service) handleFileChange() {
	if err := s.load(); err != nil {
		s.sendEvent(Event{Type: EventError, Error: err})
		return
	}
	s.sendEvent(Event{Type: EventEntitiesChanged})
}

// sendEvent sends an event to the event channel non-blocking.
func (s *Service) sendEvent(event Event) {
	select {
	case s.eventChan <- event:
	default:
		// Channel full, drop oldest event
		select {
		case <-s.eventChan:
		default:
		}
		select {
		case s.eventChan <- event:
		default:
		}
	}
}

// Close stops the file watcher.
func (s *Service) Close() error {
	close(s.stopChan)

	s.mu.Lock()
	if s.debounceTimer != nil {
		s.debounceTimer.Stop()
	}
	s.mu.Unlock()

	if s.watcher != nil {
		return s.watcher.Close()
	}
	return nil
}
