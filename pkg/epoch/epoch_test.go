package epoch

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	ref := time.Date(2025, 3, 14, 9, 30, 0, 0, time.UTC)
	sec := ref.Unix()

	tests := []struct {
		name  string
		input any
		want  int64
	}{
		{name: "seconds", input: sec, want: sec},
		{name: "milliseconds", input: sec * 1000, want: sec},
		{name: "float milliseconds", input: float64(sec * 1000), want: sec},
		{name: "int", input: int(sec), want: sec},
		{name: "numeric string", input: "1741944600000", want: sec},
		{name: "json number", input: json.Number("1741944600"), want: sec},
		{name: "rfc3339", input: "2025-03-14T09:30:00Z", want: sec},
		{name: "rfc3339 offset", input: "2025-03-14T16:30:00+07:00", want: sec},
		{name: "date only", input: "2025-03-14", want: time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC).Unix()},
		{name: "time value", input: ref, want: sec},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Normalize(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNormalizeRejects(t *testing.T) {
	for _, input := range []any{nil, "", "yesterday", time.Time{}, struct{}{}} {
		_, err := Normalize(input)
		assert.Error(t, err, "input %#v", input)
	}
}

func TestSecondsThreshold(t *testing.T) {
	assert.Equal(t, int64(MillisecondThreshold), Seconds(MillisecondThreshold))
	assert.Equal(t, int64(MillisecondThreshold+1)/1000, Seconds(MillisecondThreshold+1))
}

func TestTimeUsesLocation(t *testing.T) {
	loc := time.FixedZone("ICT", 7*3600)
	got := Time(1741944600000, loc)
	assert.Equal(t, 16, got.Hour())
}
