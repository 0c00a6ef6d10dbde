package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordID(t *testing.T) {
	id := RecordID("app.example.com", RecordTypeA, "10.0.0.5")
	assert.Equal(t, "app.example.com.|A|10.0.0.5", id)

	name, typ, value, err := ParseRecordID(id)
	require.NoError(t, err)
	assert.Equal(t, "app.example.com.", name)
	assert.Equal(t, RecordTypeA, typ)
	assert.Equal(t, "10.0.0.5", value)

	_, _, _, err = ParseRecordID("55")
	assert.Error(t, err)
}

func TestQualifyName(t *testing.T) {
	assert.Equal(t, "app.example.com.", QualifyName("app", "example.com."))
	assert.Equal(t, "app.example.com.", QualifyName("app.example.com", "example.com"))
	assert.Equal(t, "example.com.", QualifyName("@", "example.com."))
}

func TestInstanceAddress(t *testing.T) {
	assert.Equal(t, "1.2.3.4", (&Instance{PublicIP: "1.2.3.4", PrivateIP: "10.0.0.1"}).Address())
	assert.Equal(t, "10.0.0.1", (&Instance{PrivateIP: "10.0.0.1"}).Address())
	assert.Empty(t, (&Instance{}).Address())
}
