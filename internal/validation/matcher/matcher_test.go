package matcher

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/suite"

	"circulight/internal/validation/models"
	"circulight/internal/validation/scoring"
)

type MatcherSuite struct {
	suite.Suite
	weigher  *scoring.Weigher
	matcher  *Matcher
	registry []models.Reference
}

func TestMatcherSuite(t *testing.T) {
	suite.Run(t, new(MatcherSuite))
}

func ref(name, address, city, zip string) models.Reference {
	return models.Reference{Record: models.Record{Name: name, Address: address, City: city, PostalCode: zip}}
}

func cand(name, address, city, zip string) models.Candidate {
	return models.Candidate{Record: models.Record{Name: name, Address: address, City: city, PostalCode: zip}}
}

func (s *MatcherSuite) SetupTest() {
	w, err := scoring.NewWeigher(scoring.DefaultWeights())
	s.Require().NoError(err)
	s.weigher = w
	s.matcher, err = New(w)
	s.Require().NoError(err)
	s.registry = []models.Reference{
		ref("John Smith", "123 Main St", "Springfield", "12345"),
		ref("Jane Doe", "456 Oak Ave", "Springfield", "12345"),
		ref("Robert Johnson", "789 Elm Blvd", "Riverside", "67890"),
		ref("Mary Williams", "321 Pine Dr", "Riverside", "67890"),
		ref("Michael Brown", "654 Cedar Ln", "Lakeside", "11111"),
	}
}

func (s *MatcherSuite) TestNew() {
	s.Run("nil weigher returns error", func() {
		_, err := New(nil)
		s.Error(err)
		s.Contains(err.Error(), "weigher is required")
	})

	s.Run("zero workers returns error", func() {
		_, err := New(s.weigher, WithParallelism(0, 10))
		s.Error(err)
	})
}

func (s *MatcherSuite) TestExactMatch() {
	out := s.matcher.FindBestMatch(cand("Jane Doe", "456 Oak Ave", "Springfield", "12345"), s.registry)
	s.Require().NotNil(out.Matched)
	s.Equal("Jane Doe", out.Matched.Name)
	s.Equal(1.0, out.Score)
	s.Empty(out.Suggestions, "identical names are not suggested")
}

func (s *MatcherSuite) TestEmptyRegistry() {
	out := s.matcher.FindBestMatch(cand("Jane Doe", "456 Oak Ave", "Springfield", "12345"), nil)
	s.Nil(out.Matched)
	s.Equal(0.0, out.Score)
	s.Empty(out.Suggestions)
}

func (s *MatcherSuite) TestNoOverlapYieldsNoMatch() {
	out := s.matcher.FindBestMatch(cand("", "", "", ""), []models.Reference{ref("abc", "def", "ghi", "1")})
	s.Nil(out.Matched)
	s.Equal(0.0, out.Score)
}

func (s *MatcherSuite) TestTieBreakPrefersRegistryOrder() {
	first := ref("Alex Kim", "1 First St", "Hilltown", "22222")
	first.ID = "first"
	second := ref("Alex Kim", "1 First St", "Hilltown", "22222")
	second.ID = "second"

	s.Run("first of two identical references wins", func() {
		out := s.matcher.FindBestMatch(cand("Alex Kim", "1 First St", "Hilltown", "22222"), []models.Reference{first, second})
		s.Require().NotNil(out.Matched)
		s.Equal("first", out.Matched.ID)
	})

	s.Run("order swap swaps the winner", func() {
		out := s.matcher.FindBestMatch(cand("Alex Kim", "1 First St", "Hilltown", "22222"), []models.Reference{second, first})
		s.Require().NotNil(out.Matched)
		s.Equal("second", out.Matched.ID)
	})

	s.Run("equal non-perfect scores also keep the earlier reference", func() {
		a := ref("Alex Kin", "1 First St", "Hilltown", "22222")
		a.ID = "a"
		b := ref("Alex Kit", "1 First St", "Hilltown", "22222")
		b.ID = "b"
		out := s.matcher.FindBestMatch(cand("Alex Kim", "1 First St", "Hilltown", "22222"), []models.Reference{a, b})
		s.Require().NotNil(out.Matched)
		s.Equal("a", out.Matched.ID)
	})
}

func (s *MatcherSuite) TestSuggestions() {
	s.Run("near-miss names are suggested even when not the best match", func() {
		registry := []models.Reference{
			ref("Jon Smith", "9 Far Rd", "Elsewhere", "99999"),
			ref("John Smith", "123 Main St", "Springfield", "12345"),
		}
		out := s.matcher.FindBestMatch(cand("John Smith", "123 Main St", "Springfield", "12345"), registry)
		s.Require().NotNil(out.Matched)
		s.Equal("123 Main St", out.Matched.Address)
		s.Equal([]string{`did you mean "Jon Smith"?`}, out.Suggestions)
	})

	s.Run("capped at three in registry order", func() {
		registry := []models.Reference{
			ref("Jon Smith", "", "", ""),
			ref("John Smyth", "", "", ""),
			ref("Joan Smith", "", "", ""),
			ref("John Smit", "", "", ""),
		}
		out := s.matcher.FindBestMatch(cand("John Smith", "", "", ""), registry)
		s.Equal([]string{
			`did you mean "Jon Smith"?`,
			`did you mean "John Smyth"?`,
			`did you mean "Joan Smith"?`,
		}, out.Suggestions)
	})

	s.Run("names at or below the floor are not suggested", func() {
		// "jane doe" vs "john smith" is far below 0.7
		out := s.matcher.FindBestMatch(cand("Jane Doe", "", "", ""), []models.Reference{ref("John Smith", "", "", "")})
		s.Empty(out.Suggestions)
	})

	s.Run("suggestion keeps the registry spelling", func() {
		out := s.matcher.FindBestMatch(cand("mary william", "", "", ""), []models.Reference{ref("Mary  WILLIAMS", "", "", "")})
		s.Equal([]string{`did you mean "Mary  WILLIAMS"?`}, out.Suggestions)
	})
}

func (s *MatcherSuite) TestDeterministic() {
	c := cand("Robrt Jonson", "789 Elm Blv", "Riversde", "67890")
	first := s.matcher.FindBestMatch(c, s.registry)
	for i := 0; i < 5; i++ {
		s.Equal(first, s.matcher.FindBestMatch(c, s.registry))
	}
}

func (s *MatcherSuite) TestParallelScanMatchesSequential() {
	registry := syntheticRegistry(257)
	parallel, err := New(s.weigher, WithParallelism(4, 16))
	s.Require().NoError(err)

	candidates := []models.Candidate{
		cand("Person 42", "42 Main St", "Town 2", "10002"),
		cand("Person 0", "0 Main St", "Town 0", "10000"),
		cand("Persn 256", "256 Main St", "Town 6", "10006"),
		cand("Nobody", "", "", ""),
		cand("", "", "", ""),
	}
	for _, c := range candidates {
		s.Equal(s.matcher.FindBestMatch(c, registry), parallel.FindBestMatch(c, registry), "candidate %q", c.Name)
	}
}

func (s *MatcherSuite) TestParallelTieBreakAcrossChunks() {
	registry := syntheticRegistry(64)
	dup := ref("Twin Record", "7 Same St", "Twin City", "77777")
	dup.ID = "early"
	registry[3] = dup
	late := dup
	late.ID = "late"
	registry[60] = late

	parallel, err := New(s.weigher, WithParallelism(8, 2))
	s.Require().NoError(err)

	out := parallel.FindBestMatch(cand("Twin Record", "7 Same St", "Twin City", "77777"), registry)
	s.Require().NotNil(out.Matched)
	s.Equal("early", out.Matched.ID)
}

func syntheticRegistry(n int) []models.Reference {
	refs := make([]models.Reference, n)
	for i := range refs {
		refs[i] = ref(
			fmt.Sprintf("Person %d", i),
			fmt.Sprintf("%d Main St", i),
			fmt.Sprintf("Town %d", i%10),
			fmt.Sprintf("1000%d", i%10),
		)
		refs[i].ID = fmt.Sprintf("r-%d", i)
	}
	return refs
}

func BenchmarkFindBestMatch(b *testing.B) {
	w, _ := scoring.NewWeigher(scoring.DefaultWeights())
	registry := syntheticRegistry(10_000)
	c := cand("Persn 5000", "5000 Main St", "Town 0", "10000")

	b.Run("sequential", func(b *testing.B) {
		m, _ := New(w)
		for i := 0; i < b.N; i++ {
			m.FindBestMatch(c, registry)
		}
	})

	b.Run("parallel", func(b *testing.B) {
		m, _ := New(w, WithParallelism(8, 1000))
		for i := 0; i < b.N; i++ {
			m.FindBestMatch(c, registry)
		}
	})
}
