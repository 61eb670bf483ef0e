package postgres

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConfigString(t *testing.T) {
	testCases := []struct {
		name     string
		conf     Config
		expected string
	}{
		{
			name:     "defaults",
			conf:     Config{},
			expected: "host=127.0.0.1 dbname=postgres port=5432 sslmode=prefer",
		},
		{
			name: "credentials",
			conf: Config{
				Host:     "db",
				Port:     "6432",
				User:     "sync",
				Password: "secret",
				DBName:   "ledger",
				SSLMode:  "disable",
			},
			expected: "host=db dbname=ledger port=6432 sslmode=disable user=sync password=secret",
		},
		{
			name: "url wins",
			conf: Config{
				Host: "db",
				URL:  "postgres://sync@localhost:5432/ledger",
			},
			expected: "postgres://sync@localhost:5432/ledger",
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, tc.conf.String())
		})
	}
}
