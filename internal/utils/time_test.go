package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReqDtm(t *testing.T) {
	ts := time.Date(2024, 12, 20, 20, 16, 0, 0, time.UTC)
	assert.Equal(t, "2024/12/20 20:16:00", ReqDtm(ts))
}

func TestFormatDateDMY(t *testing.T) {
	ts := time.Date(2024, 12, 1, 10, 30, 0, 0, time.UTC)
	assert.Equal(t, "01/12/2024", FormatDateDMY(ts))
}

func TestParseDateDMY(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    time.Time
		wantErr bool
	}{
		{
			name:  "plain date",
			input: "01/12/2024",
			want:  time.Date(2024, 12, 1, 0, 0, 0, 0, time.UTC),
		},
		{
			name:  "date with trailing time",
			input: "01/12/2024 14:30",
			want:  time.Date(2024, 12, 1, 0, 0, 0, 0, time.UTC),
		},
		{
			name:    "iso format rejected",
			input:   "2024-12-01",
			wantErr: true,
		},
		{
			name:    "empty",
			input:   "",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseDateDMY(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.True(t, got.Equal(tt.want), "got %v, want %v", got, tt.want)
		})
	}
}

func TestDateStamp(t *testing.T) {
	ts, err := ParseDateDMY("01/12/2024")
	require.NoError(t, err)
	assert.Equal(t, "20241201", DateStamp(ts))
}
