// Package registry holds the in-memory recipient list for the current
// session. Contacts keep their insertion order and are only removed by an
// explicit Clear.
package registry

import (
	"sync"

	"github.com/dilshat/wa-sender/model"
)

type DuplicateContactErr struct {
	phone string
}

func (e *DuplicateContactErr) Error() string {
	return "duplicate contact " + e.phone
}

func NewDuplicateContactError(phone string) *DuplicateContactErr {
	return &DuplicateContactErr{phone: phone}
}

type Registry interface {
	//Add appends the contact with status PENDING, rejecting duplicate phones
	Add(contact model.Contact) error
	//Clear removes all contacts; confirmation is up to the caller
	Clear()
	//All returns contacts in insertion order
	All() []model.Contact
	//PendingCount returns the number of contacts still PENDING
	PendingCount() int
	//SetStatus updates the status (and failure category) of one contact
	SetStatus(phone, status, category string) bool
}

func NewRegistry() Registry {
	return &registry{index: make(map[string]int)}
}

type registry struct {
	mu       sync.Mutex
	contacts []model.Contact
	index    map[string]int //normalized phone -> position in contacts
}

func (r *registry) Add(contact model.Contact) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.index[contact.Phone]; ok {
		return NewDuplicateContactError(contact.Phone)
	}

	contact.Status = model.PENDING
	contact.Category = ""
	r.index[contact.Phone] = len(r.contacts)
	r.contacts = append(r.contacts, contact)

	return nil
}

func (r *registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.contacts = nil
	r.index = make(map[string]int)
}

func (r *registry) All() []model.Contact {
	r.mu.Lock()
	defer r.mu.Unlock()

	all := make([]model.Contact, len(r.contacts))
	copy(all, r.contacts)

	return all
}

func (r *registry) PendingCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	count := 0
	for _, c := range r.contacts {
		if c.Status == model.PENDING {
			count++
		}
	}

	return count
}

func (r *registry) SetStatus(phone, status, category string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	i, ok := r.index[phone]
	if !ok {
		return false
	}
	r.contacts[i].Status = status
	r.contacts[i].Category = category

	return true
}
