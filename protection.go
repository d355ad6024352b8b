// FILE: lixenwraith/secureconfig/protection.go
package secureconfig

import (
	"errors"
	"log/slog"
)

// coordinator is the only component that changes a section's protection
// state. All transitions go through protect and unprotect so that failures
// are reported uniformly and logged.
type coordinator struct {
	providers *ProviderRegistry
	logger    *slog.Logger
}

// protect seals s with the default provider unless it is already protected.
func (c *coordinator) protect(s *Section) error {
	p, err := c.providers.Default()
	if err != nil {
		return &ProtectionError{Section: s.path, Op: "protect", Err: err}
	}
	return c.protectWith(s, p)
}

func (c *coordinator) protectWith(s *Section, p Provider) error {
	if s.protected {
		return nil
	}
	if err := s.seal(p); err != nil {
		return &ProtectionError{Section: s.path, Op: "protect", Err: err}
	}
	c.logger.Debug("section protected", "section", s.path, "provider", p.Name())
	return nil
}

// unprotect opens s with the provider that sealed it.
func (c *coordinator) unprotect(s *Section) error {
	if !s.protected {
		return nil
	}
	p, err := c.providers.Lookup(s.provider)
	if err != nil {
		return &ProtectionError{Section: s.path, Op: "unprotect", Err: err}
	}
	if err := s.open(p); err != nil {
		return &ProtectionError{Section: s.path, Op: "unprotect", Err: err}
	}
	c.logger.Debug("section unprotected", "section", s.path, "provider", p.Name())
	return nil
}

// withUnprotected runs fn against the plaintext of s. A section that was
// protected on entry is protected again on every exit path, including a
// failing or panicking fn, and with the provider that originally sealed it.
func (c *coordinator) withUnprotected(s *Section, fn func(*Section) error) (err error) {
	if !s.protected {
		return fn(s)
	}

	p, err := c.providers.Lookup(s.provider)
	if err != nil {
		return &ProtectionError{Section: s.path, Op: "unprotect", Err: err}
	}
	if err := c.unprotect(s); err != nil {
		return err
	}
	defer func() {
		if reErr := c.protectWith(s, p); reErr != nil {
			err = errors.Join(err, reErr)
		}
	}()

	return fn(s)
}

// sweep moves every sensitive section of doc to the target state. A failing
// section does not stop the sweep; all failures are returned together in a
// SweepError. changed reports whether any section transitioned.
func (c *coordinator) sweep(doc *Document, protect bool) (changed bool, err error) {
	op, transition := "decrypt", c.unprotect
	if protect {
		op, transition = "encrypt", c.protect
	}

	var failures []*ProtectionError
	for _, s := range doc.SensitiveSections() {
		if s.protected == protect {
			continue
		}
		if err := transition(s); err != nil {
			var pe *ProtectionError
			if !errors.As(err, &pe) {
				pe = &ProtectionError{Section: s.path, Op: op, Err: err}
			}
			failures = append(failures, pe)
			c.logger.Warn("section transition failed", "op", op, "section", s.path, "error", err)
			continue
		}
		changed = true
	}

	if len(failures) > 0 {
		return changed, &SweepError{Op: op, Failures: failures}
	}
	return changed, nil
}

// fullyProtected reports whether every sensitive section of doc is protected.
// A document with no sensitive sections is trivially protected.
func fullyProtected(doc *Document) bool {
	for _, s := range doc.SensitiveSections() {
		if !s.protected {
			return false
		}
	}
	return true
}
