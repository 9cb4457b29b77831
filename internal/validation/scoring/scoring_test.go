package scoring

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"circulight/internal/validation/models"
	dErrors "circulight/pkg/domain-errors"
)

type WeigherSuite struct {
	suite.Suite
	weigher   *Weigher
	reference models.Reference
}

func TestWeigherSuite(t *testing.T) {
	suite.Run(t, new(WeigherSuite))
}

func (s *WeigherSuite) SetupTest() {
	w, err := NewWeigher(DefaultWeights())
	s.Require().NoError(err)
	s.weigher = w
	s.reference = models.Reference{Record: models.Record{
		Name: "John Smith", Address: "123 Main St", City: "Springfield", PostalCode: "12345",
	}}
}

func (s *WeigherSuite) candidate(name, address, city, zip string) models.Candidate {
	return models.Candidate{Record: models.Record{Name: name, Address: address, City: city, PostalCode: zip}}
}

func (s *WeigherSuite) TestIdenticalRecord() {
	score := s.weigher.Score(s.candidate("John Smith", "123 Main St", "Springfield", "12345"), s.reference)
	s.Equal(1.0, score)
}

func (s *WeigherSuite) TestNormalizationBeforeComparison() {
	score := s.weigher.Score(s.candidate("  JOHN   smith ", "123 MAIN  ST", "springfield", " 12345 "), s.reference)
	s.Equal(1.0, score)
}

func (s *WeigherSuite) TestOneCharacterNameTypo() {
	c := s.candidate("Jon Smith", "123 Main St", "Springfield", "12345")

	fields := s.weigher.Fields(c, s.reference)
	s.InDelta(0.9, fields.Name, 1e-12)
	s.Equal(1.0, fields.Address)
	s.Equal(1.0, fields.City)
	s.Equal(1.0, fields.PostalCode)

	s.InDelta(0.96, s.weigher.Score(c, s.reference), 1e-12)
}

func (s *WeigherSuite) TestPostalCodeIsBinary() {
	s.Run("one digit off contributes nothing", func() {
		fields := s.weigher.Fields(s.candidate("John Smith", "123 Main St", "Springfield", "12346"), s.reference)
		s.Equal(0.0, fields.PostalCode)
	})

	s.Run("missing code contributes nothing", func() {
		score := s.weigher.Score(s.candidate("John Smith", "123 Main St", "Springfield", ""), s.reference)
		s.InDelta(0.85, score, 1e-12)
	})
}

func (s *WeigherSuite) TestCityUsesEditDistance() {
	fields := s.weigher.Fields(s.candidate("John Smith", "123 Main St", "Springfeld", "12345"), s.reference)
	// one deletion over "springfield" (11 runes)
	s.InDelta(1-1.0/11.0, fields.City, 1e-12)
}

func (s *WeigherSuite) TestEmptyCandidateScoresLow() {
	score := s.weigher.Score(models.Candidate{}, s.reference)
	s.Equal(0.0, score)
}

func (s *WeigherSuite) TestBothEmptyFieldsMatch() {
	ref := models.Reference{Record: models.Record{Name: "Jane Doe"}}
	score := s.weigher.Score(s.candidate("Jane Doe", "", "", ""), ref)
	s.Equal(1.0, score)
}

func (s *WeigherSuite) TestScoreStaysInUnitInterval() {
	candidates := []models.Candidate{
		s.candidate("", "", "", ""),
		s.candidate("X", "Y", "Z", "0"),
		s.candidate("John Smith", "", "Springfield", ""),
		s.candidate("jOhN sMiTh the third", "123 Main Street Apt 4", "Springfield Heights", "12345-6789"),
		s.candidate("åäö", " ", "\t", " "),
	}
	for _, c := range candidates {
		score := s.weigher.Score(c, s.reference)
		s.GreaterOrEqual(score, 0.0)
		s.LessOrEqual(score, 1.0)
	}
}

func TestWeightsValidate(t *testing.T) {
	t.Run("default weights are valid", func(t *testing.T) {
		require.NoError(t, DefaultWeights().Validate())
		assert.InDelta(t, 1.0, DefaultWeights().Sum(), 1e-12)
	})

	t.Run("weights not summing to one are rejected", func(t *testing.T) {
		_, err := NewWeigher(Weights{Name: 0.5, Address: 0.3, City: 0.15, PostalCode: 0.15})
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvariantViolation))
		assert.Contains(t, err.Error(), "sum to 1.0")
	})

	t.Run("negative weights are rejected", func(t *testing.T) {
		err := Weights{Name: 1.2, Address: -0.2}.Validate()
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvariantViolation))
		assert.Contains(t, err.Error(), "non-negative")
	})

	t.Run("alternative weights summing to one are accepted", func(t *testing.T) {
		w, err := NewWeigher(Weights{Name: 0.5, Address: 0.5})
		require.NoError(t, err)
		assert.Equal(t, 0.5, w.Weights().Name)
	})
}
