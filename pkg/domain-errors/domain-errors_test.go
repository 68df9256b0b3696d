package domainerrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/suite"
)

type DomainErrorsSuite struct {
	suite.Suite
}

func TestDomainErrorsSuite(t *testing.T) {
	suite.Run(t, new(DomainErrorsSuite))
}

func (s *DomainErrorsSuite) TestErrorInterface() {
	s.Run("returns message when present", func() {
		err := &Error{Code: CodeNotFound, Message: "country not found"}
		s.Equal("country not found", err.Error())
	})

	s.Run("returns code when message is empty", func() {
		err := &Error{Code: CodeUnavailable}
		s.Equal("upstream_unavailable", err.Error())
	})
}

func (s *DomainErrorsSuite) TestUnwrap() {
	inner := errors.New("connection refused")
	err := &Error{Code: CodeUnavailable, Message: "upstream down", Err: inner}
	s.Equal(inner, errors.Unwrap(err))
	s.Nil((&Error{Code: CodeNotFound}).Unwrap())
}

func (s *DomainErrorsSuite) TestIsMatching() {
	s.Run("matches by code only", func() {
		s.True(errors.Is(New(CodeNotFound, "a"), New(CodeNotFound, "b")))
	})

	s.Run("does not match different codes", func() {
		s.False(errors.Is(New(CodeNotFound, "a"), New(CodeTimeout, "a")))
	})

	s.Run("finds code through fmt wrapping", func() {
		wrapped := fmt.Errorf("list page: %w", New(CodeTimeout, "slow"))
		s.True(errors.Is(wrapped, &Error{Code: CodeTimeout}))
	})
}

func (s *DomainErrorsSuite) TestWrap() {
	s.Run("preserves existing domain code", func() {
		err := Wrap(New(CodeNotFound, "inner"), CodeInternal, "outer")
		s.True(HasCode(err, CodeNotFound))
		s.Equal("outer", err.Error())
	})

	s.Run("applies code to foreign errors", func() {
		err := Wrap(errors.New("boom"), CodeUnavailable, "upstream failed")
		s.True(HasCode(err, CodeUnavailable))
	})
}

func (s *DomainErrorsSuite) TestCodeOf() {
	s.Equal(CodeTimeout, CodeOf(fmt.Errorf("x: %w", New(CodeTimeout, "t"))))
	s.Equal(CodeInternal, CodeOf(errors.New("plain")))
}
