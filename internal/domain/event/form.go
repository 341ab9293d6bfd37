package event

import (
	"fmt"
	"strconv"
	"strings"
)

// FieldType はフォーム項目の種類
type FieldType string

const (
	FieldText     FieldType = "text"
	FieldTextarea FieldType = "textarea"
	FieldNumber   FieldType = "number"
	FieldSelect   FieldType = "select"
	FieldCheckbox FieldType = "checkbox"
	FieldFile     FieldType = "file"
)

// FormField は登録フォームの項目定義
type FormField struct {
	Label    string    `json:"label"`
	Type     FieldType `json:"type"`
	Options  []string  `json:"options,omitempty"`
	Required bool      `json:"required"`
}

// Validate は項目定義を検証する
func (f FormField) Validate() error {
	if strings.TrimSpace(f.Label) == "" {
		return fmt.Errorf("%w: label is required", ErrInvalidFormField)
	}
	switch f.Type {
	case FieldText, FieldTextarea, FieldNumber, FieldCheckbox, FieldFile:
		return nil
	case FieldSelect:
		if len(f.Options) == 0 {
			return fmt.Errorf("%w: select field %q needs options", ErrInvalidFormField, f.Label)
		}
		return nil
	default:
		return fmt.Errorf("%w: unknown type %q", ErrInvalidFormField, f.Type)
	}
}

// ValidateAnswers はフォーム定義に対して回答を検証し、定義済み項目のみを返す
func ValidateAnswers(fields []FormField, answers map[string]string) (map[string]string, error) {
	out := make(map[string]string, len(fields))
	for _, f := range fields {
		v := strings.TrimSpace(answers[f.Label])
		if v == "" {
			if f.Required {
				return nil, fmt.Errorf("%w: %s", ErrAnswerRequired, f.Label)
			}
			continue
		}
		if err := f.check(v); err != nil {
			return nil, err
		}
		out[f.Label] = v
	}
	return out, nil
}

func (f FormField) check(v string) error {
	switch f.Type {
	case FieldNumber:
		if _, err := strconv.ParseFloat(v, 64); err != nil {
			return fmt.Errorf("%w: %s must be a number", ErrInvalidAnswer, f.Label)
		}
	case FieldSelect:
		for _, opt := range f.Options {
			if opt == v {
				return nil
			}
		}
		return fmt.Errorf("%w: %s must be one of %s", ErrInvalidAnswer, f.Label, strings.Join(f.Options, ", "))
	case FieldCheckbox:
		if _, err := strconv.ParseBool(v); err != nil {
			return fmt.Errorf("%w: %s must be true or false", ErrInvalidAnswer, f.Label)
		}
	}
	return nil
}
