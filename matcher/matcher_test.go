package matcher

import "testing"

import "github.com/stretchr/testify/assert"

func TestSuffixMatch(t *testing.T) {
	m := NewSuffix("example.com")
	assert.True(t, m.Matches("example.com", 443))
	assert.True(t, m.Matches("www.example.com", 443))
	assert.False(t, m.Matches("notexample.com", 443))
	assert.False(t, m.Matches("example.org", 443))
}

func TestPortMatch(t *testing.T) {
	m := NewPort(22)
	assert.True(t, m.Matches("anything", 22))
	assert.False(t, m.Matches("anything", 80))
}

func TestPatternMatch(t *testing.T) {
	m, err := NewPattern(`.*google\.com.*`)
	assert.NoError(t, err)
	assert.True(t, m.Matches("maps.google.com", 80))
	assert.False(t, m.Matches("example.com", 80))
}

func TestBuildDispatch(t *testing.T) {
	cases := []struct {
		line string
		kind Kind
	}{
		{":22", KindPort},
		{"/.*google\\.com.*/", KindPattern},
		{"youtube.com", KindSuffix},
		{"216.58.200.46", KindSuffix},
	}
	for _, c := range cases {
		m, err := Build(c.line, nil)
		assert.NoError(t, err, c.line)
		assert.Equal(t, c.kind, m.Kind(), c.line)
	}
}

func TestBuildInvalidPort(t *testing.T) {
	_, err := Build(":99999", nil)
	assert.Error(t, err)
}

func TestBuildInvalidRegex(t *testing.T) {
	_, err := Build("/[/", nil)
	assert.Error(t, err)
}
