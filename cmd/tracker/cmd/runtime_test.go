package cmd

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"tx-tracker/pkg/config"
)

func TestCheckTopology(t *testing.T) {
	tests := []struct {
		store   string
		mq      string
		wantErr bool
	}{
		{"file", "memory", false},
		{"file", "", false},
		{"memory", "memory", false},
		{"redis", "redis", false},
		{"postgres", "kafka", false},
		{"redis", "memory", true},
		{"postgres", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.store+"/"+tt.mq, func(t *testing.T) {
			err := checkTopology(config.TrackerConfig{Store: tt.store, MQType: tt.mq})
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
		})
	}
}
