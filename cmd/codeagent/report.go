package main

import (
	"fmt"
	"os"

	"github.com/jmorales/codeagent/internal/reconcile"
	"github.com/jmorales/codeagent/internal/trace"
)

// Run renders the consolidated record for a run. When no record has been
// written yet the raw event log is reconciled on the fly, optionally
// merged with an exported agent trace.
func (c *ReportCmd) Run() error {
	cfg, err := loadConfig(c.Config)
	if err != nil {
		return err
	}
	if c.TraceDir != "" {
		cfg.Trace.Dir = c.TraceDir
	}
	store := trace.NewStore(cfg.TraceDir())

	render := func() (string, error) {
		rec, err := c.loadRecord(store)
		if err != nil {
			return "", err
		}
		return reconcile.Render(rec, c.Verbose), nil
	}

	if c.Live {
		path := store.RecordPath(c.RunID)
		if _, err := os.Stat(path); os.IsNotExist(err) {
			path = store.LogPath(c.RunID)
		}
		return reconcile.NewPager("codeagent · "+c.RunID).RunLive(path, render)
	}

	content, err := render()
	if err != nil {
		return err
	}
	if !c.NoPager && isTerminal(os.Stdout) {
		return reconcile.NewPager("codeagent · " + c.RunID).Run(content)
	}
	fmt.Print(content)
	return nil
}

// loadRecord prefers the written record; absent that it reconciles the
// raw event log.
func (c *ReportCmd) loadRecord(store *trace.Store) (*reconcile.RunRecord, error) {
	if _, err := os.Stat(store.RecordPath(c.RunID)); err == nil {
		return reconcile.LoadRecord(store.RecordPath(c.RunID))
	}

	var agentTrace *reconcile.Trace
	if c.Trace != "" {
		t, err := reconcile.LoadTrace(c.Trace)
		if err != nil {
			return nil, err
		}
		agentTrace = t
	}
	rec, err := reconcile.New(store).Reconcile(c.RunID, agentTrace)
	if err != nil {
		return nil, err
	}
	if len(rec.Events) == 0 && len(rec.Calls) == 0 {
		return nil, fmt.Errorf("no record or events found for run %s", c.RunID)
	}
	return rec, nil
}
