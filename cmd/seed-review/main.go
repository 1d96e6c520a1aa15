// Command seed-review fills the review of a script with sample rubric data
// and, for top-tier scripts, page rubrics and page notes.
package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"os"
	"time"

	"github.com/iliyamo/script-review-portal/internal/model"
	"github.com/iliyamo/script-review-portal/internal/ops"
	"github.com/iliyamo/script-review-portal/internal/repository"
	"github.com/iliyamo/script-review-portal/internal/service"
)

func main() {
	scriptID := flag.String("script", "", "script id")
	judgeID := flag.String("judge", "", "judge to assign when the script is still pending")
	rec := flag.String("recommendation", string(model.RecommendConsider), "approved, declined or consider")
	submit := flag.Bool("submit", false, "complete the review after seeding")
	flag.Parse()
	if *scriptID == "" {
		flag.Usage()
		os.Exit(2)
	}
	recommendation, err := model.ParseRecommendation(*rec)
	if err != nil {
		log.Fatalf("recommendation: %v", err)
	}

	lg := ops.Env("seed-review")
	defer func() { _ = lg.Sync() }()
	db := ops.OpenDB()
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	scripts := repository.NewScriptRepo(db)
	reviews := repository.NewReviewRepo(db)
	pages := repository.NewPageRepo(db)

	s, err := scripts.GetByID(ctx, *scriptID)
	if err != nil {
		log.Fatalf("load script %s: %v", *scriptID, err)
	}
	if s.AssignedJudgeID == nil {
		if *judgeID == "" {
			log.Fatalf("script %s has no judge; pass -judge", s.ID)
		}
		if err := scripts.Assign(ctx, s.ID, *judgeID); err != nil {
			log.Fatalf("assign: %v", err)
		}
		s.AssignedJudgeID = judgeID
		ops.Info(os.Stdout, "assigned judge %s", *judgeID)
	}

	rv, err := reviews.GetByScript(ctx, s.ID)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		rv = &model.Review{ScriptID: s.ID, JudgeID: *s.AssignedJudgeID}
		if err := reviews.Create(ctx, rv); err != nil {
			log.Fatalf("create review: %v", err)
		}
		ops.Info(os.Stdout, "created review %s", rv.ID)
	case err != nil:
		log.Fatalf("load review: %v", err)
	case rv.Completed():
		ops.Warn(os.Stdout, "review %s is already completed", rv.ID)
		os.Exit(1)
	}

	sheet := ops.SampleSheet()
	if err := reviews.SaveRubric(ctx, rv.ID, sheet); err != nil {
		log.Fatalf("save rubric: %v", err)
	}
	if err := reviews.SaveSummary(ctx, rv.ID, recommendation, "Seeded sample review."); err != nil {
		log.Fatalf("save summary: %v", err)
	}
	ops.OK(os.Stdout, "rubric saved on review %s", rv.ID)

	if service.IsTopTier(s) {
		for p := 1; p <= s.PageCount; p++ {
			if err := pages.UpsertNote(ctx, rv.ID, p, ops.SamplePageNote(p)); err != nil {
				log.Fatalf("page %d note: %v", p, err)
			}
			if p%2 == 0 {
				continue
			}
			if _, err := pages.GetOrCreateRubric(ctx, rv.ID, p); err != nil {
				log.Fatalf("page %d rubric: %v", p, err)
			}
			if err := pages.SaveRubric(ctx, rv.ID, p, sheet); err != nil {
				log.Fatalf("page %d rubric: %v", p, err)
			}
		}
		ops.OK(os.Stdout, "seeded %s with notes, odd pages rated", ops.Plural(s.PageCount, "page", "pages"))
	} else {
		ops.Info(os.Stdout, "tier %s has no per-page review, skipping pages", s.TierName)
	}

	if !*submit {
		return
	}
	if recommendation == "" {
		log.Fatal("submit needs a recommendation")
	}
	err = reviews.Complete(ctx, repository.Completion{
		ReviewID:       rv.ID,
		ScriptID:       s.ID,
		Recommendation: recommendation,
		OverallNotes:   "Seeded sample review.",
		Rubric:         sheet,
		At:             time.Now().UTC().Truncate(time.Second),
	})
	if err != nil {
		log.Fatalf("complete: %v", err)
	}
	ops.OK(os.Stdout, "review %s completed, script is now %s", rv.ID, recommendation.ScriptStatus())
}
