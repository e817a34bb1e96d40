package classificaservice

import (
	"context"

	classificadomain "github.com/Black-And-White-Club/pinfall-import/app/modules/classifica/domain"
	"github.com/Black-And-White-Club/pinfall-import/pkg/results"
)

// Preview parses the source and resolves every extracted athlete against
// the registry. Nothing is written.
func (s *ImportService) Preview(ctx context.Context, req PreviewRequest) (*classificadomain.PreviewResult, error) {
	result, err := withTelemetry(s, ctx, "Preview", req.Source.Describe(), func(ctx context.Context) (results.OperationResult[*classificadomain.PreviewResult, error], error) {
		return s.previewLogic(ctx, req)
	})
	if err != nil {
		return nil, err
	}
	if result.IsFailure() {
		return nil, *result.Failure
	}
	return *result.Success, nil
}

func (s *ImportService) previewLogic(ctx context.Context, req PreviewRequest) (results.OperationResult[*classificadomain.PreviewResult, error], error) {
	parsed, failure, err := s.parseSource(ctx, req.Source)
	if err != nil {
		return results.OperationResult[*classificadomain.PreviewResult, error]{}, err
	}
	if failure != nil {
		return results.FailureResult[*classificadomain.PreviewResult, error](failure), nil
	}

	resolver, err := s.loadResolver(ctx, nil)
	if err != nil {
		return results.OperationResult[*classificadomain.PreviewResult, error]{}, err
	}
	candidates := resolver.ResolveAll(parsed.Results)
	s.recordTiers(ctx, candidates)

	return results.SuccessResult[*classificadomain.PreviewResult, error](buildPreview(parsed, candidates)), nil
}

func buildPreview(parsed *classificadomain.ParsedClassifica, candidates []classificadomain.MatchCandidate) *classificadomain.PreviewResult {
	preview := &classificadomain.PreviewResult{
		TournamentName: parsed.TournamentName,
		StartDate:      parsed.StartDate,
		Mapping:        parsed.Mapping,
		Candidates:     candidates,
		Unmatched:      []string{},
		NeedsReview:    []string{},
		Warnings:       parsed.Warnings,
	}
	for _, c := range candidates {
		if !c.IsMatched {
			preview.Unmatched = append(preview.Unmatched, c.Result.AthleteName)
		}
		if c.Tier == classificadomain.TierReview || c.Result.TeamTotalInferred {
			preview.NeedsReview = append(preview.NeedsReview, c.Result.AthleteName)
		}
	}
	return preview
}
