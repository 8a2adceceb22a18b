package diag

import (
	"fmt"
)

type Code uint16

const (
	UnknownCode Code = 0

	// Планировщик
	SchedInfo                        Code = 1000
	SchedUnresolvedReference         Code = 1001
	SchedAmbiguousReference          Code = 1002
	SchedCircularInheritance         Code = 1003
	SchedMultipleTopLevelDefinitions Code = 1004
	SchedNoTopLevelDefinition        Code = 1005
	SchedPackageNameMismatch         Code = 1006
	SchedTooManyErrors               Code = 1007
	SchedForcedStop                  Code = 1008
	SchedDependencyFailed            Code = 1009
	SchedUnresolvedExpression        Code = 1010
	SchedLicenseMissing              Code = 1011
	SchedInternal                    Code = 1012
	SchedUnresolvedBundle            Code = 1013
	SchedDuplicateDefinition         Code = 1014

	// Front-end (reference declaration language)
	DeclInfo           Code = 2000
	DeclSyntax         Code = 2001
	DeclUserError      Code = 2002
	DeclUnknownMime    Code = 2003
	DeclEmptyMarkup    Code = 2004
	DeclBadArchiveUnit Code = 2005

	// Проект / ввод-вывод
	ProjInfo          Code = 3000
	ProjLoadError     Code = 3001
	ProjMissingEntry  Code = 3002
	ProjStaleSnapshot Code = 3003
)

var (
	codeDescription = map[Code]string{
		UnknownCode:                      "Unknown error",
		SchedInfo:                        "Scheduler information",
		SchedUnresolvedReference:         "Unresolved reference",
		SchedAmbiguousReference:          "Ambiguous reference",
		SchedCircularInheritance:         "Circular inheritance",
		SchedMultipleTopLevelDefinitions: "Multiple top-level definitions",
		SchedNoTopLevelDefinition:        "No top-level definition",
		SchedPackageNameMismatch:         "Package name mismatch",
		SchedTooManyErrors:               "Too many errors",
		SchedForcedStop:                  "Build forced to stop",
		SchedDependencyFailed:            "Dependency has errors",
		SchedUnresolvedExpression:        "Unresolved expression reference",
		SchedLicenseMissing:              "License missing",
		SchedInternal:                    "Internal scheduler error",
		SchedUnresolvedBundle:            "Unresolved resource bundle",
		SchedDuplicateDefinition:         "Definition already provided by another source",
		DeclInfo:                         "Front-end information",
		DeclSyntax:                       "Syntax error",
		DeclUserError:                    "Error directive",
		DeclUnknownMime:                  "No compiler for mime type",
		DeclEmptyMarkup:                  "Markup document has no root",
		DeclBadArchiveUnit:               "Malformed archive entry",
		ProjInfo:                         "Project information",
		ProjLoadError:                    "Cannot load source",
		ProjMissingEntry:                 "Entry point not found",
		ProjStaleSnapshot:                "Snapshot discarded",
	}
)

func (c Code) ID() string {
	switch ic := int(c); {
	case ic >= 1000 && ic < 2000:
		return fmt.Sprintf("SCH%04d", ic)
	case ic >= 2000 && ic < 3000:
		return fmt.Sprintf("DCL%04d", ic)
	case ic >= 3000 && ic < 4000:
		return fmt.Sprintf("PRJ%04d", ic)
	}
	return "E0000"
}

func (c Code) Title() string {
	desc, ok := codeDescription[c]
	if !ok {
		return codeDescription[UnknownCode]
	}
	return desc
}

func (c Code) String() string {
	return fmt.Sprintf("[%s]: %s", c.ID(), c.Title())
}
