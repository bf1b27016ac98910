package cache

import (
	"testing"
	"time"
)

func TestEntry_IsExpired(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)

	tests := []struct {
		name       string
		expiration time.Time
		want       bool
	}{
		{
			name:       "expired entry",
			expiration: now.Add(-1 * time.Hour),
			want:       true,
		},
		{
			name:       "valid entry",
			expiration: now.Add(1 * time.Hour),
			want:       false,
		},
		{
			name:       "just expired",
			expiration: now.Add(-1 * time.Second),
			want:       true,
		},
		{
			name:       "expires this second",
			expiration: now,
			want:       true,
		},
		{
			name:       "sub-second remainder ignored",
			expiration: now.Add(900 * time.Millisecond),
			want:       true,
		},
		{
			name:       "one second left",
			expiration: now.Add(1 * time.Second),
			want:       false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entry := &Entry{
				Expiration: tt.expiration,
			}
			if got := entry.IsExpired(now); got != tt.want {
				t.Errorf("IsExpired() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestEntry_TTL(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)

	tests := []struct {
		name       string
		expiration time.Time
		want       time.Duration
	}{
		{
			name:       "one hour remaining",
			expiration: now.Add(1 * time.Hour),
			want:       1 * time.Hour,
		},
		{
			name:       "already expired",
			expiration: now.Add(-1 * time.Hour),
			want:       0,
		},
		{
			name:       "5 minutes remaining",
			expiration: now.Add(5 * time.Minute),
			want:       5 * time.Minute,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entry := &Entry{
				Expiration: tt.expiration,
			}
			if got := entry.TTL(now); got != tt.want {
				t.Errorf("TTL() = %v, want %v", got, tt.want)
			}
		})
	}
}
