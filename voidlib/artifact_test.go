package voidlib_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/suite"
	"github.com/voidcheck/voidcheck/internal/testlib"
	"github.com/voidcheck/voidcheck/voidlib"
)

func framesText(artifact *voidlib.Artifact, version voidlib.ProtocolVersion) string {
	frames := artifact.Frames(version)
	parts := make([]string, 0, len(frames))

	for _, v := range frames {
		parts = append(parts, string(v))
	}

	return strings.Join(parts, "|")
}

type ArtifactBuilderTestSuite struct {
	suite.Suite

	encoder testlib.StubEncoder
}

func (suite *ArtifactBuilderTestSuite) SetupTest() {
	suite.encoder = testlib.StubEncoder{
		Boundaries: []voidlib.ProtocolVersion{
			0,
			voidlib.Version1_8,
			voidlib.Version1_13,
			10000,
		},
	}
}

func (suite *ArtifactBuilderTestSuite) TestRanges() {
	artifact, err := voidlib.NewArtifactBuilder(suite.encoder).
		Add(voidlib.MessageChat{Text: "hi"}).
		AddRange(voidlib.MessageChunk{}, voidlib.Version1_8, voidlib.Version1_16-1).
		Build()
	suite.NoError(err)

	suite.Equal(`chat@4:{"text":"hi"}`, framesText(artifact, voidlib.Version1_7_2))
	suite.Equal(`chat@4:{"text":"hi"}`, framesText(artifact, voidlib.Version1_7_6))
	suite.Equal(
		`chat@47:{"text":"hi"}|chunk@47:{"chunkX":0,"chunkZ":0}`,
		framesText(artifact, voidlib.Version1_9))
	suite.Equal(
		`chat@393:{"text":"hi"}|chunk@393:{"chunkX":0,"chunkZ":0}`,
		framesText(artifact, voidlib.Version1_13))
	suite.Equal(`chat@735:{"text":"hi"}`, framesText(artifact, voidlib.Version1_16))
	suite.Equal(`chat@735:{"text":"hi"}`, framesText(artifact, voidlib.MaximumVersion))
	suite.Equal(`chat@735:{"text":"hi"}`, framesText(artifact, 100000))
}

func (suite *ArtifactBuilderTestSuite) TestOlderThanFirstRange() {
	artifact, err := voidlib.NewArtifactBuilder(suite.encoder).
		Add(voidlib.MessageChat{Text: "hi"}).
		Build()
	suite.NoError(err)

	suite.Equal(`chat@4:{"text":"hi"}`, framesText(artifact, 1))
}

func (suite *ArtifactBuilderTestSuite) TestEmpty() {
	artifact, err := voidlib.NewArtifactBuilder(suite.encoder).Build()
	suite.NoError(err)

	suite.Empty(artifact.Frames(voidlib.Version1_19))
	suite.Zero(artifact.Size())
}

func (suite *ArtifactBuilderTestSuite) TestNilArtifact() {
	var artifact *voidlib.Artifact

	suite.Nil(artifact.Frames(voidlib.Version1_19))
	suite.Zero(artifact.Size())
}

func (suite *ArtifactBuilderTestSuite) TestSize() {
	artifact, err := voidlib.NewArtifactBuilder(testlib.StubEncoder{}).
		Add(voidlib.MessageChat{Text: "hi"}).
		Build()
	suite.NoError(err)

	suite.Equal(len(`chat@4:{"text":"hi"}`), artifact.Size())
}

func (suite *ArtifactBuilderTestSuite) TestEncodeError() {
	_, err := voidlib.NewArtifactBuilder(testlib.StubEncoder{Err: errors.New("boom")}).
		Add(voidlib.MessageChat{Text: "hi"}).
		Build()

	suite.ErrorContains(err, "boom")
}

func TestArtifactBuilder(t *testing.T) {
	t.Parallel()
	suite.Run(t, &ArtifactBuilderTestSuite{})
}
