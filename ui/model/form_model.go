package model

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/soocke/sigdesk-go/domain/backend"
	"github.com/soocke/sigdesk-go/domain/signature"
)

// ErrNoSignature blocks submission while no usable signature is active.
var ErrNoSignature = errors.New("please select or upload a signature before submitting")

// ErrNoPerson blocks submission while no person is entered.
var ErrNoPerson = errors.New("please enter the employee number (NPP)")

// ActiveSignature is the part of the history store the form reads. The
// history's PersonID owns every stored signature.
type ActiveSignature interface {
	Active() (signature.Image, bool)
	History() signature.History
}

// Submission is the signature payload handed to the work-order form. File and
// DataURL carry the same processed image.
type Submission struct {
	NPP     string
	File    backend.FilePart
	DataURL string
}

// FormModel holds the person the form is filled for and gates submission on
// an active signature.
type FormModel struct {
	mu     sync.Mutex
	npp    string
	source ActiveSignature
}

// NewFormModel binds the form to the store providing the active signature.
func NewFormModel(source ActiveSignature) *FormModel {
	return &FormModel{source: source}
}

// SetNPP records the person id, trimmed.
func (m *FormModel) SetNPP(npp string) {
	m.mu.Lock()
	m.npp = strings.TrimSpace(npp)
	m.mu.Unlock()
}

// NPP returns the current person id.
func (m *FormModel) NPP() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.npp
}

// Submit returns the final signature in both representations. Placeholders are
// never submitted, nor stored signatures of a person other than the form's.
func (m *FormModel) Submit() (Submission, error) {
	npp := m.NPP()
	if npp == "" {
		return Submission{}, ErrNoPerson
	}
	if m.source == nil {
		return Submission{}, ErrNoSignature
	}
	img, ok := m.source.Active()
	if !ok || img.IsZero() || img.Fallback {
		return Submission{}, ErrNoSignature
	}
	if owner := m.source.History().PersonID; img.Stored() && owner != npp {
		return Submission{}, fmt.Errorf("%w (signatures shown belong to %s; load %s first)", ErrNoSignature, owner, npp)
	}
	part, err := img.FilePart()
	if err != nil {
		return Submission{}, ErrNoSignature
	}
	return Submission{NPP: npp, File: part, DataURL: img.DataURL()}, nil
}
