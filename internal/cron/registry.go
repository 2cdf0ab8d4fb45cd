package cron

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Job is one unit of scheduled maintenance.
type Job interface {
	Name() string
	Run(ctx context.Context) error
}

// Periodic jobs choose their own cadence. Jobs without it use the service default.
type Periodic interface {
	Every() time.Duration
}

type entry struct {
	job     Job
	every   time.Duration
	lastRun time.Time
}

// Registry holds the jobs by name and remembers when each last ran.
type Registry struct {
	mu      sync.Mutex
	entries []*entry
	byName  map[string]*entry
}

// NewRegistry registers jobs in order. Nil jobs are ignored.
func NewRegistry(jobs ...Job) (*Registry, error) {
	registry := &Registry{byName: map[string]*entry{}}
	for _, job := range jobs {
		if err := registry.Register(job); err != nil {
			return nil, err
		}
	}
	return registry, nil
}

// Register adds a job; names must be unique.
func (r *Registry) Register(job Job) error {
	if job == nil {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.byName == nil {
		r.byName = map[string]*entry{}
	}
	if _, exists := r.byName[job.Name()]; exists {
		return fmt.Errorf("cron job %q already registered", job.Name())
	}
	e := &entry{job: job}
	if p, ok := job.(Periodic); ok {
		e.every = p.Every()
	}
	r.entries = append(r.entries, e)
	r.byName[job.Name()] = e
	return nil
}

// Jobs returns the registered jobs in registration order.
func (r *Registry) Jobs() []Job {
	r.mu.Lock()
	defer r.mu.Unlock()
	jobs := make([]Job, 0, len(r.entries))
	for _, e := range r.entries {
		jobs = append(jobs, e.job)
	}
	return jobs
}

// Due lists the jobs whose cadence has elapsed at now. A job that never ran is due.
func (r *Registry) Due(now time.Time, fallback time.Duration) []Job {
	r.mu.Lock()
	defer r.mu.Unlock()
	var due []Job
	for _, e := range r.entries {
		every := e.every
		if every <= 0 {
			every = fallback
		}
		if e.lastRun.IsZero() || !now.Before(e.lastRun.Add(every)) {
			due = append(due, e.job)
		}
	}
	return due
}

// MarkRun records an attempt; failed jobs wait a full cadence too.
func (r *Registry) MarkRun(name string, at time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.byName[name]; ok {
		e.lastRun = at
	}
}
