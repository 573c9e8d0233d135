package clickhouse

import (
	"testing"
	"time"

	ch "github.com/ClickHouse/clickhouse-go/v2"
	"github.com/stretchr/testify/assert"
)

func TestOptions(t *testing.T) {
	o := Options(
		WithAddr("ch.local", 9000),
		WithDatabase("turtledesk"),
		WithCredentials("default", "p@ss"),
		WithTimeouts(2*time.Second, 0),
	)
	assert.Equal(t, []string{"ch.local:9000"}, o.Addr)
	assert.Equal(t, "turtledesk", o.Auth.Database)
	assert.Equal(t, "p@ss", o.Auth.Password)
	assert.Equal(t, 2*time.Second, o.DialTimeout)
	assert.Equal(t, 10*time.Second, o.ReadTimeout)
	assert.Equal(t, ch.Native, o.Protocol)

	assert.Equal(t, ch.HTTP, Options(WithHTTP(true)).Protocol)
}

func TestNewClientRequiresAddress(t *testing.T) {
	_, err := NewClient()
	assert.Error(t, err)
}
