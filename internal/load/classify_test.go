package load

import (
	"errors"
	"testing"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		source   string
		expected Class
	}{
		{"song.it", Module},
		{"song.mod", Module},
		{"music/theme.XM", Module},
		{"song.wav", Sampled},
		{"song.mp3", Sampled},
		{"song.OGG", Sampled},
		{"song.xyz", Unrecognized},
		{"noextension", Unrecognized},
		{".mp3", Unrecognized},
		{"dir.v2/song", Unrecognized},
	}

	for _, tt := range tests {
		t.Run(tt.source, func(t *testing.T) {
			if got := Classify(tt.source); got != tt.expected {
				t.Errorf("Classify(%q) = %s, expected %s", tt.source, got, tt.expected)
			}
		})
	}
}

func TestIsNetwork(t *testing.T) {
	tests := []struct {
		source   string
		expected bool
	}{
		{"http://host/song.mp3", true},
		{"HTTP://host/song.mod", true},
		{"ftp://host/song.ogg", true},
		{"https://host/song.ogg", true},
		{"song.mp3", false},
		{"http:/host/song.mp3", false},
		{"", false},
	}

	for _, tt := range tests {
		if got := IsNetwork(tt.source); got != tt.expected {
			t.Errorf("IsNetwork(%q) = %v, expected %v", tt.source, got, tt.expected)
		}
	}
}

func TestChoose(t *testing.T) {
	tests := []struct {
		source       string
		preferStream bool
		expected     Strategy
		err          error
	}{
		{"a.it", false, StrategyModule, nil},
		{"a.it", true, StrategyModule, nil},
		{"a.wav", false, StrategySample, nil},
		{"a.wav", true, StrategyFileStream, nil},
		{"http://host/a.mp3", false, StrategyNetworkStream, nil},
		{"HTTP://host/song.mod", false, 0, ErrNetworkModule},
		{"a.xyz", false, 0, ErrUnknownExtension},
	}

	for _, tt := range tests {
		t.Run(tt.source, func(t *testing.T) {
			got, err := Choose(tt.source, tt.preferStream)
			if tt.err != nil {
				if !errors.Is(err, tt.err) {
					t.Fatalf("Expected %v, got %v", tt.err, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Choose failed: %v", err)
			}
			if got != tt.expected {
				t.Errorf("Expected %s, got %s", tt.expected, got)
			}
		})
	}
}
