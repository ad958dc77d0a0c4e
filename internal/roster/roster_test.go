package roster

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleRoster = `User_Id,FULL_NAME,LOGIN_ID
3,Ada Lovelace,ada@example.com
21,Grace Hopper,grace@example.com
1220,Annie Easley,annie@example.com
`

func TestParse(t *testing.T) {
	ros, err := Parse(strings.NewReader(sampleRoster))
	require.NoError(t, err)
	assert.Equal(t, 3, ros.Len())

	entry, ok := ros.Lookup(21)
	require.True(t, ok)
	assert.Equal(t, "Grace Hopper", entry.FullName)
	assert.Equal(t, "grace@example.com", entry.LoginID)

	_, ok = ros.Lookup(99)
	assert.False(t, ok)
}

func TestParseDiscardsDuplicateIDs(t *testing.T) {
	dup := sampleRoster + "21,Grace H. Duplicate,dup@example.com\n"
	ros, err := Parse(strings.NewReader(dup))
	require.NoError(t, err)

	assert.Equal(t, 3, ros.Len())
	assert.Equal(t, 1, ros.Duplicates)

	entry, _ := ros.Lookup(21)
	assert.Equal(t, "Grace Hopper", entry.FullName, "first entry wins")
}

func TestParseHeaderCaseInsensitive(t *testing.T) {
	ros, err := Parse(strings.NewReader("USER_ID,full_name,Login_Id\n5,Test User,test@example.com\n"))
	require.NoError(t, err)
	entry, ok := ros.Lookup(5)
	require.True(t, ok)
	assert.Equal(t, "Test User", entry.FullName)
}

func TestParseMissingUserColumn(t *testing.T) {
	_, err := Parse(strings.NewReader("FULL_NAME,LOGIN_ID\nAda,ada@example.com\n"))
	assert.Error(t, err)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.csv"))
	assert.ErrorIs(t, err, ErrUnavailable)
}
