package event

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateAnswers(t *testing.T) {
	fields := []FormField{
		{Label: "氏名", Type: FieldText, Required: true},
		{Label: "学年", Type: FieldSelect, Options: []string{"1", "2", "3", "4"}},
		{Label: "年齢", Type: FieldNumber},
		{Label: "同意", Type: FieldCheckbox, Required: true},
	}

	t.Run("有効な回答", func(t *testing.T) {
		out, err := ValidateAnswers(fields, map[string]string{
			"氏名": "山田", "学年": "2", "同意": "true", "未定義": "x",
		})

		require.NoError(t, err)
		assert.Equal(t, map[string]string{"氏名": "山田", "学年": "2", "同意": "true"}, out)
	})

	tests := []struct {
		name    string
		answers map[string]string
		want    error
	}{
		{"必須項目が空", map[string]string{"氏名": " ", "同意": "true"}, ErrAnswerRequired},
		{"選択肢外", map[string]string{"氏名": "山田", "学年": "5", "同意": "true"}, ErrInvalidAnswer},
		{"数値でない", map[string]string{"氏名": "山田", "年齢": "twenty", "同意": "true"}, ErrInvalidAnswer},
		{"真偽値でない", map[string]string{"氏名": "山田", "同意": "yes please"}, ErrInvalidAnswer},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ValidateAnswers(fields, tt.answers)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}
