package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docintel/core"
)

func candidatesOfType(cands []Candidate, obsType core.ObservableType) []Candidate {
	var out []Candidate
	for _, c := range cands {
		if c.Type == obsType {
			out = append(out, c)
		}
	}
	return out
}

func TestRecognizeEntitiesIPv4(t *testing.T) {
	cands := RecognizeEntities("C2 at 203.0.113.10 and bogus 999.1.2.3")
	ips := candidatesOfType(cands, core.ObservableTypeIPv4)
	require.Len(t, ips, 1)
	assert.Equal(t, "203.0.113.10", ips[0].Value)
}

func TestRecognizeEntitiesURLSubsumesHost(t *testing.T) {
	cands := RecognizeEntities("payload from https://evil.example.com/drop.bin served here")

	urls := candidatesOfType(cands, core.ObservableTypeURL)
	require.Len(t, urls, 1)
	assert.Equal(t, "https://evil.example.com/drop.bin", urls[0].Value)

	// The URL host must not surface as a standalone FQDN candidate
	assert.Empty(t, candidatesOfType(cands, core.ObservableTypeFQDN))
}

func TestRecognizeEntitiesStandaloneFQDN(t *testing.T) {
	cands := RecognizeEntities("resolved evil.example.com to 203.0.113.10")
	fqdns := candidatesOfType(cands, core.ObservableTypeFQDN)
	require.Len(t, fqdns, 1)
	assert.Equal(t, "evil.example.com", fqdns[0].Value)
}

func TestRecognizeEntitiesDefangedIndicators(t *testing.T) {
	cands := RecognizeEntities("beacon to hxxps://evil[.]example/gate and 198[.]51[.]100[.]7")

	urls := candidatesOfType(cands, core.ObservableTypeURL)
	require.Len(t, urls, 1)
	assert.Equal(t, "https://evil.example/gate", urls[0].Value)

	ips := candidatesOfType(cands, core.ObservableTypeIPv4)
	require.Len(t, ips, 1)
	assert.Equal(t, "198.51.100.7", ips[0].Value)
}

func TestRecognizeEntitiesHashes(t *testing.T) {
	text := "md5 d41d8cd98f00b204e9800998ecf8427e sha256 " +
		"e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855"
	cands := RecognizeEntities(text)

	files := candidatesOfType(cands, core.ObservableTypeFile)
	require.Len(t, files, 2)
	assert.Equal(t, core.HashTypeMD5, files[0].Hashes[0].Type)
	assert.Equal(t, core.HashTypeSHA256, files[1].Hashes[0].Type)
}

func TestRecognizeEntitiesIPv6(t *testing.T) {
	cands := RecognizeEntities("tunnel endpoint 2001:db8:0:0:0:0:0:1 observed")
	v6 := candidatesOfType(cands, core.ObservableTypeIPv6)
	require.Len(t, v6, 1)
	assert.Equal(t, "2001:db8:0:0:0:0:0:1", v6[0].Value)
}

func TestRecognizeEntitiesEmptyText(t *testing.T) {
	assert.Empty(t, RecognizeEntities(""))
	assert.Empty(t, RecognizeEntities("plain prose with no indicators"))
}
