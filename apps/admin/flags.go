package main

import (
	"github.com/trezcool/backoffice/core"
	"github.com/trezcool/backoffice/core/admission"
)

type statusFlag admission.Status

func (f *statusFlag) String() string { return string(*f) }

func (f *statusFlag) Set(s string) error {
	status := admission.Status(core.CleanString(s, true /* lower */))
	if !status.IsValid() {
		return core.NewFieldValidationError("status", "invalid status")
	}
	*f = statusFlag(status)
	return nil
}

type programTypeFlag admission.ProgramType

func (f *programTypeFlag) String() string { return string(*f) }

func (f *programTypeFlag) Set(s string) error {
	pt := admission.ProgramType(core.CleanString(s, true /* lower */))
	if !pt.IsValid() {
		return core.NewFieldValidationError("program_type", "must be one of university, formation or fablab")
	}
	*f = programTypeFlag(pt)
	return nil
}
