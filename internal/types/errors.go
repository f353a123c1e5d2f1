package types

import (
	"errors"
	"fmt"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var (
	ErrMalformedPattern   = errors.New("malformed pattern")
	ErrUnsupportedPattern = errors.New("unsupported pattern")
	ErrEvaluatorFault     = errors.New("evaluator fault")
)

// Message keys. Each key is also the English format string.
const (
	MsgEmptyTemplate          = "template is empty"
	MsgParse                  = "template is not valid Go: %s"
	MsgBadQuantifier          = "malformed quantifier %q"
	MsgBadConstraint          = "malformed constraint %q: %s"
	MsgUndeclaredVariable     = "variable %q is not declared in the template"
	MsgConflictingQuantifier  = "variable %q is declared with different quantifiers"
	MsgInconsistent           = "constraints on %q can never hold together: %s"
	MsgRepeatOnFixedSlot      = "variable %q can repeat or be absent but stands in a single %s position"
	MsgFormalOutsideExpr      = "formal type constraint on %q needs an expression position"
	MsgBadRegex               = "bad regular expression %q: %s"
	MsgBadTypePattern         = "bad type pattern %q: %s"
	MsgBadSubPattern          = "%s sub-pattern %q: %s"
	MsgBadScript              = "script %q: %s"
	MsgUndeclaredReplacement  = "replacement uses undeclared variable %q"
	MsgUnterminatedVariable   = "unterminated variable reference at offset %d"
	MsgWholeFile              = "a whole source file cannot be used as a template"
	MsgEmptySequence          = "template can match an empty node sequence"
	MsgUnsupportedPlaceholder = "placeholder %q stands where no node can be captured"
)

var korean = map[string]string{
	MsgEmptyTemplate:          "템플릿이 비어 있습니다",
	MsgParse:                  "템플릿이 올바른 Go 코드가 아닙니다: %s",
	MsgBadQuantifier:          "잘못된 수량자 %q",
	MsgBadConstraint:          "잘못된 제약 조건 %q: %s",
	MsgUndeclaredVariable:     "변수 %q가 템플릿에 선언되지 않았습니다",
	MsgConflictingQuantifier:  "변수 %q가 서로 다른 수량자로 선언되었습니다",
	MsgInconsistent:           "%q에 대한 제약 조건을 동시에 만족할 수 없습니다: %s",
	MsgRepeatOnFixedSlot:      "변수 %q는 반복되거나 생략될 수 있지만 단일 %s 위치에 있습니다",
	MsgFormalOutsideExpr:      "%q의 formal 타입 제약은 표현식 위치에만 쓸 수 있습니다",
	MsgBadRegex:               "잘못된 정규식 %q: %s",
	MsgBadTypePattern:         "잘못된 타입 패턴 %q: %s",
	MsgBadSubPattern:          "%s 하위 패턴 %q: %s",
	MsgBadScript:              "스크립트 %q: %s",
	MsgUndeclaredReplacement:  "치환 템플릿이 선언되지 않은 변수 %q를 사용합니다",
	MsgUnterminatedVariable:   "오프셋 %d에서 변수 참조가 끝나지 않았습니다",
	MsgWholeFile:              "소스 파일 전체는 템플릿으로 쓸 수 없습니다",
	MsgEmptySequence:          "템플릿이 빈 노드 시퀀스와 일치할 수 있습니다",
	MsgUnsupportedPlaceholder: "자리표시자 %q는 캡처할 수 있는 노드 위치에 있지 않습니다",
}

func init() {
	for key, ko := range korean {
		_ = message.SetString(language.English, key, key)
		_ = message.SetString(language.Korean, key, ko)
	}
}

// MalformedPatternError reports a template, constraint or replacement
// that cannot be compiled.
type MalformedPatternError struct {
	Key      string
	Args     []any
	Variable string // offending variable, if any
}

// Malformed builds a *MalformedPatternError.
func Malformed(variable, key string, args ...any) *MalformedPatternError {
	return &MalformedPatternError{Key: key, Args: args, Variable: variable}
}

func (e *MalformedPatternError) Error() string { return e.Localize(language.English) }

// Localize renders the message in the given language.
func (e *MalformedPatternError) Localize(tag language.Tag) string {
	return message.NewPrinter(tag).Sprintf(e.Key, e.Args...)
}

func (e *MalformedPatternError) Is(target error) bool { return target == ErrMalformedPattern }

// UnsupportedPatternError reports a well-formed template the engine
// declines to run.
type UnsupportedPatternError struct {
	Key  string
	Args []any
}

// Unsupported builds an *UnsupportedPatternError.
func Unsupported(key string, args ...any) *UnsupportedPatternError {
	return &UnsupportedPatternError{Key: key, Args: args}
}

func (e *UnsupportedPatternError) Error() string { return e.Localize(language.English) }

func (e *UnsupportedPatternError) Localize(tag language.Tag) string {
	return message.NewPrinter(tag).Sprintf(e.Key, e.Args...)
}

func (e *UnsupportedPatternError) Is(target error) bool { return target == ErrUnsupportedPattern }

// StructuralSearchError aborts a running search, typically because a
// script predicate faulted.
type StructuralSearchError struct {
	Msg string
	Err error
}

func (e *StructuralSearchError) Error() string {
	if e.Err == nil {
		return e.Msg
	}
	return fmt.Sprintf("%s: %v", e.Msg, e.Err)
}

func (e *StructuralSearchError) Unwrap() error { return e.Err }

func (e *StructuralSearchError) Is(target error) bool { return target == ErrEvaluatorFault }

// Localizer is implemented by errors whose message can be translated.
type Localizer interface {
	Localize(tag language.Tag) string
}

// LocalizedMessage renders err in lang ("en", "ko"), falling back to
// err.Error() for errors without a catalog entry.
func LocalizedMessage(err error, lang string) string {
	tag, parseErr := language.Parse(lang)
	if parseErr != nil {
		return err.Error()
	}
	var l Localizer
	if errors.As(err, &l) {
		return l.Localize(tag)
	}
	return err.Error()
}
