// Package lua runs user supplied light patterns written in Lua. Patterns
// drive the light through the same command queue as every other source.
package lua

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	lua "github.com/yuin/gopher-lua"

	"rgblight-controller/internal/core"
)

// Source marks commands issued by a running pattern.
const Source = "lua"

type cmdType int

const (
	cmdRunFile cmdType = iota
	cmdRunString
	cmdStop
)

type engineCmd struct {
	kind cmdType
	name string
	code string
}

// Engine runs at most one pattern at a time on a single worker goroutine.
type Engine struct {
	commands    core.CommandChannel
	patternsDir string
	eventBus    *core.EventBus

	cmdChan chan engineCmd
	done    chan struct{}
}

// NewEngine creates a new Lua engine and starts its background worker.
func NewEngine(commands core.CommandChannel, patternsDir string, eb *core.EventBus) *Engine {
	e := &Engine{
		commands:    commands,
		patternsDir: patternsDir,
		eventBus:    eb,
		cmdChan:     make(chan engineCmd, 10),
		done:        make(chan struct{}),
	}

	go e.runLoop()

	return e
}

// runLoop processes engine commands sequentially. Every command first stops
// the running script.
func (e *Engine) runLoop() {
	defer close(e.done)

	var currentCancel context.CancelFunc
	var scriptDone chan struct{}

	stop := func() {
		if currentCancel == nil {
			return
		}
		currentCancel()
		select {
		case <-scriptDone:
		case <-time.After(2 * time.Second):
			log.Println("[Lua] Timeout waiting for script to stop")
		}
		currentCancel = nil
		scriptDone = nil
	}
	defer stop()

	for cmd := range e.cmdChan {
		stop()
		if cmd.kind == cmdStop {
			continue
		}

		ctx, cancel := context.WithCancel(context.Background())
		currentCancel = cancel
		scriptDone = make(chan struct{})

		go func(cmd engineCmd, ctx context.Context, done chan struct{}) {
			defer close(done)
			switch cmd.kind {
			case cmdRunFile:
				e.execute(ctx, cmd.name, func(L *lua.LState) error { return L.DoFile(cmd.code) })
			case cmdRunString:
				e.execute(ctx, cmd.name, func(L *lua.LState) error { return L.DoString(cmd.code) })
			}
		}(cmd, ctx, scriptDone)
	}
}

// Close stops the running pattern and the worker.
func (e *Engine) Close() {
	close(e.cmdChan)
	<-e.done
}

// StopCurrentPattern stops the currently running script if any.
func (e *Engine) StopCurrentPattern() {
	select {
	case e.cmdChan <- engineCmd{kind: cmdStop}:
	default:
		log.Println("[Lua] Command channel full, could not send stop command")
	}
}

// RunPattern starts the named pattern file, replacing the running one.
func (e *Engine) RunPattern(name string) error {
	scriptPath, err := e.GetPatternPath(name)
	if err != nil {
		return err
	}
	if _, err := os.Stat(scriptPath); err != nil {
		return err
	}
	return e.submit(engineCmd{kind: cmdRunFile, name: name, code: scriptPath})
}

// ExecuteString runs a one-off chunk of Lua as a pattern.
func (e *Engine) ExecuteString(name, code string) error {
	return e.submit(engineCmd{kind: cmdRunString, name: name, code: code})
}

func (e *Engine) submit(cmd engineCmd) error {
	select {
	case e.cmdChan <- cmd:
		return nil
	default:
		return fmt.Errorf("lua engine busy, dropping '%s'", cmd.name)
	}
}

// sanitizeFilename checks for directory traversal and ensures a valid .lua extension.
func sanitizeFilename(name string) (string, error) {
	if !strings.HasSuffix(name, ".lua") {
		return "", fmt.Errorf("filename must end with .lua")
	}
	cleanName := filepath.Base(name)
	if cleanName != name || cleanName == ".lua" || strings.Contains(cleanName, "..") {
		return "", fmt.Errorf("invalid filename '%s'", name)
	}
	return cleanName, nil
}

// GetPatternPath returns the path of a pattern file inside the patterns
// directory.
func (e *Engine) GetPatternPath(name string) (string, error) {
	cleanName, err := sanitizeFilename(name)
	if err != nil {
		return "", err
	}
	return filepath.Join(e.patternsDir, cleanName), nil
}

// GetPatternList returns the .lua files in the patterns directory.
func (e *Engine) GetPatternList() ([]string, error) {
	patterns := []string{}
	files, err := os.ReadDir(e.patternsDir)
	if err != nil {
		if os.IsNotExist(err) {
			return patterns, nil
		}
		return nil, err
	}
	for _, file := range files {
		if !file.IsDir() && filepath.Ext(file.Name()) == ".lua" {
			patterns = append(patterns, file.Name())
		}
	}
	return patterns, nil
}

func (e *Engine) publish(running string) {
	if e.eventBus != nil {
		e.eventBus.Publish(core.Event{Type: core.PatternChangedEvent, Payload: core.PatternPayload{Running: running}})
	}
}

// execute runs Lua code in a fresh state bound to ctx.
func (e *Engine) execute(ctx context.Context, name string, executor func(*lua.LState) error) {
	log.Printf("[Lua] Starting pattern '%s'...", name)
	e.publish(name)
	defer func() {
		log.Printf("[Lua] Pattern '%s' finished.", name)
		e.publish("")
	}()

	L := lua.NewState()
	defer L.Close()
	L.SetContext(ctx)
	e.registerGoFunctions(L, ctx)

	if err := executor(L); err != nil {
		if ctx.Err() != nil {
			log.Printf("[Lua] Pattern '%s' execution was canceled.", name)
		} else {
			log.Printf("[Lua] Error executing pattern '%s': %v", name, err)
		}
	}
}
