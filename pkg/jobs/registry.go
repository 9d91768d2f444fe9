package jobs

import "sync"

// Registry is the in-memory store of submitted jobs. It is safe for
// concurrent use and is not durable: jobs are lost when the process exits.
type Registry struct {
	mu   sync.Mutex
	jobs map[string]*Job
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{jobs: make(map[string]*Job)}
}

// Put stores job, replacing any job with the same ID.
func (r *Registry) Put(job Job) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.jobs[job.ID] = &job
}

// Get returns a copy of the job without removing it.
func (r *Registry) Get(id string) (Job, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	job, ok := r.jobs[id]
	if !ok {
		return Job{}, false
	}
	return *job, true
}

// Update applies fn to the stored job. It returns false if id is unknown.
func (r *Registry) Update(id string, fn func(*Job)) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	job, ok := r.jobs[id]
	if !ok {
		return false
	}

	fn(job)
	return true
}

// Take returns a copy of the job and, if it is terminal, removes it in the
// same critical section. At most one caller ever receives a terminal job.
func (r *Registry) Take(id string) (Job, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	job, ok := r.jobs[id]
	if !ok {
		return Job{}, false
	}

	if job.Terminal() {
		delete(r.jobs, id)
	}
	return *job, true
}

// Len returns the number of stored jobs.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return len(r.jobs)
}
