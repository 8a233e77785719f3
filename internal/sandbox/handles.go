package sandbox

import (
	"fmt"

	"github.com/lambda-feedback/scripthost/models"
)

// Handle is an opaque resource id handed to guest code.
type Handle uint32

// HandleTable maps handles to the resources of one sandbox. It is only
// accessed from the sandbox event loop and is not safe for concurrent use.
type HandleTable struct {
	next      Handle
	resources map[Handle]*models.Request
}

func NewHandleTable() *HandleTable {
	return &HandleTable{
		resources: make(map[Handle]*models.Request),
	}
}

// Add registers req and returns its handle. Handles are never reused.
func (t *HandleTable) Add(req *models.Request) Handle {
	h := t.next
	t.next++
	t.resources[h] = req
	return h
}

// Get returns the request registered under h.
func (t *HandleTable) Get(h Handle) (*models.Request, error) {
	req, ok := t.resources[h]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrBadResource, h)
	}
	return req, nil
}

// Remove invalidates h. Removing a released handle is an error.
func (t *HandleTable) Remove(h Handle) error {
	if _, ok := t.resources[h]; !ok {
		return fmt.Errorf("%w: %d", ErrBadResource, h)
	}
	delete(t.resources, h)
	return nil
}

// Len returns the number of live handles.
func (t *HandleTable) Len() int {
	return len(t.resources)
}
