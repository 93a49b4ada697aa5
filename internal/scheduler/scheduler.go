package scheduler

import (
	"encoding/json"
	"os"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"github.com/robfig/cron/v3"
	log "github.com/sirupsen/logrus"

	"rgblight-controller/internal/core"
	"rgblight-controller/internal/property"
)

// ScheduleEntry defines the structure for a saved schedule.
type ScheduleEntry struct {
	Spec    string `json:"spec"`
	Command string `json:"command"`
}

// Scheduler manages all cron-related tasks.
type Scheduler struct {
	cron           *cron.Cron
	store          map[cron.EntryID]ScheduleEntry
	commandChannel core.CommandChannel
	mu             sync.RWMutex
	schedulesFile  string
}

// NewScheduler creates and loads a scheduler.
func NewScheduler(cmdChan core.CommandChannel, schedulesFile string) *Scheduler {
	s := &Scheduler{
		cron:           cron.New(),
		store:          make(map[cron.EntryID]ScheduleEntry),
		commandChannel: cmdChan,
		schedulesFile:  schedulesFile,
	}
	s.load()
	return s
}

// Start begins the cron job ticker.
func (s *Scheduler) Start() {
	s.cron.Start()
	log.Println("[Scheduler] Cron scheduler started.")
}

// Stop halts the cron job ticker.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	log.Println("[Scheduler] Cron scheduler stopped.")
}

// Add validates command, creates a cron job for it and persists the list.
func (s *Scheduler) Add(spec, command string) (int, error) {
	if _, err := ParseCommand(command); err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	id, err := s.cron.AddFunc(spec, func() { s.execute(command) })
	if err != nil {
		return 0, errors.Wrapf(err, "schedule %q", spec)
	}
	s.store[id] = ScheduleEntry{Spec: spec, Command: command}
	s.save()
	log.Printf("[Scheduler] Added schedule (ID %d): %s -> %s", id, spec, command)
	return int(id), nil
}

// Remove deletes a cron job.
func (s *Scheduler) Remove(id int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entryID := cron.EntryID(id)
	s.cron.Remove(entryID)
	delete(s.store, entryID)
	s.save()
	log.Printf("[Scheduler] Removed schedule (ID %d)", id)
}

// GetAll returns a copy of the current schedules.
func (s *Scheduler) GetAll() map[cron.EntryID]ScheduleEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	newMap := make(map[cron.EntryID]ScheduleEntry, len(s.store))
	for k, v := range s.store {
		newMap[k] = v
	}
	return newMap
}

// ParseCommand translates a schedule command line into a queued command.
// Accepted forms: "power on|off", "color R,G,B", "brightness N",
// "pattern NAME" and "stop".
func ParseCommand(command string) (core.Command, error) {
	parts := strings.Fields(command)
	if len(parts) == 0 {
		return core.Command{}, errors.New("empty schedule command")
	}
	cmd := core.Command{Source: "schedule"}
	arg := strings.Join(parts[1:], "")

	switch parts[0] {
	case "power":
		on, err := property.ParsePower(arg)
		if err != nil {
			return cmd, err
		}
		cmd.Type, cmd.On = core.CmdSetPower, on
	case "color":
		c, err := property.ParseColor(arg)
		if err != nil {
			return cmd, err
		}
		cmd.Type, cmd.Color = core.CmdSetColor, c
	case "brightness":
		v, err := property.ParseBrightness(arg)
		if err != nil {
			return cmd, err
		}
		cmd.Type, cmd.Brightness, cmd.Raw = core.CmdSetBrightness, v, arg
	case "pattern":
		if arg == "" {
			return cmd, errors.New("pattern: missing name")
		}
		cmd.Type, cmd.Name = core.CmdRunPattern, parts[1]
	case "stop":
		cmd.Type = core.CmdStopPattern
	default:
		return cmd, errors.Errorf("unknown schedule command %q", parts[0])
	}
	return cmd, nil
}

func (s *Scheduler) execute(command string) {
	log.Printf("[Scheduler] Executing scheduled command: %s", command)
	cmd, err := ParseCommand(command)
	if err != nil {
		log.Printf("[Scheduler] Skipping %q: %v", command, err)
		return
	}
	if !s.commandChannel.Send(cmd) {
		log.Printf("[Scheduler] Command queue full, dropping %q", command)
	}
}

func (s *Scheduler) save() {
	data, err := json.MarshalIndent(s.store, "", "  ")
	if err != nil {
		log.Printf("[Scheduler] Error marshalling schedules: %v", err)
		return
	}
	if err := os.WriteFile(s.schedulesFile, data, 0644); err != nil {
		log.Printf("[Scheduler] Error writing %s: %v", s.schedulesFile, err)
	}
}

func (s *Scheduler) load() {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.schedulesFile)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Printf("[Scheduler] Error reading schedule file: %v", err)
		}
		return
	}

	tempStore := make(map[cron.EntryID]ScheduleEntry)
	if err := json.Unmarshal(data, &tempStore); err != nil {
		log.Printf("[Scheduler] Error unmarshalling schedule file: %v", err)
		return
	}

	log.Printf("[Scheduler] Loading %d schedules from file '%s'...", len(tempStore), s.schedulesFile)
	for _, entry := range tempStore {
		jobEntry := entry
		newID, err := s.cron.AddFunc(jobEntry.Spec, func() { s.execute(jobEntry.Command) })
		if err != nil {
			log.Printf("[Scheduler] Error re-adding schedule from file: %v", err)
			continue
		}
		s.store[newID] = jobEntry
	}
}
