package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatus(t *testing.T) {
	tests := []struct {
		status   Status
		valid    bool
		terminal bool
	}{
		{StatusPending, true, false},
		{StatusSuccess, true, true},
		{StatusFailed, true, true},
		{Status("mined"), false, false},
		{Status(""), false, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			assert.Equal(t, tt.valid, tt.status.Valid())
			assert.Equal(t, tt.terminal, tt.status.IsTerminal())
		})
	}
}

func TestTruncateHash(t *testing.T) {
	h := "0x5c504ed432cb51138bcf09aa5e8a410dd4a1e204ef84bfed1be16dfba1b22060"
	assert.Equal(t, "0x5c50...2060", TruncateHash(h, 6, 4))
	assert.Equal(t, "0xabc", TruncateHash("0xabc", 6, 4))
	assert.Equal(t, "", TruncateHash("", 6, 4))
}

func TestExplorerLink(t *testing.T) {
	assert.Equal(t, "https://sepolia.etherscan.io/tx/0xabc", ExplorerLink("https://sepolia.etherscan.io/tx/", "0xabc"))
	assert.Equal(t, "https://sepolia.etherscan.io/tx/0xabc", ExplorerLink("https://sepolia.etherscan.io/tx", "0xabc"))
	assert.Equal(t, "0xabc", ExplorerLink("", "0xabc"))
}

func TestValidHash(t *testing.T) {
	assert.True(t, ValidHash("0x5c504ed432cb51138bcf09aa5e8a410dd4a1e204ef84bfed1be16dfba1b22060"))
	assert.True(t, ValidHash("0x5C504ED432CB51138BCF09AA5E8A410DD4A1E204EF84BFED1BE16DFBA1B22060"))
	assert.False(t, ValidHash("5c504ed432cb51138bcf09aa5e8a410dd4a1e204ef84bfed1be16dfba1b22060"))
	assert.False(t, ValidHash("0x5c50"))
	assert.False(t, ValidHash("0xzz504ed432cb51138bcf09aa5e8a410dd4a1e204ef84bfed1be16dfba1b22060"))
}
