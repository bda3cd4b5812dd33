package swipesim

import (
	"fmt"
	"log"
)

// verifyRun checks that no candidate was presented twice and that every
// committed decision was acknowledged by the backend.
func verifyRun(report *Report, stats *Stats) error {
	log.Println("🔍 Verifying results...")

	if err := verifyUniquePresentation(report.Presented); err != nil {
		return err
	}
	if err := verifyVotes(report.Decisions, report.Votes); err != nil {
		return err
	}
	if err := verifyRanks(report.Recommendations); err != nil {
		return err
	}
	if err := verifyRecommendationsExcludeDecided(report.Decisions, report.Recommendations); err != nil {
		log.Printf("⚠️  Recommendation warning: %v", err)
	}

	displayTopRecommendations(report.Recommendations, stats)

	log.Println("✅ Result verification completed")
	return nil
}

// verifyUniquePresentation fails when a candidate shows up more than once.
func verifyUniquePresentation(presented []string) error {
	seen := make(map[string]int, len(presented))
	for i, name := range presented {
		if first, dup := seen[name]; dup {
			return fmt.Errorf("candidate %s presented twice (positions %d and %d)", name, first, i)
		}
		seen[name] = i
	}
	return nil
}

// verifyVotes fails unless every decision was acknowledged exactly once.
// Failures that a retry recovered from are reported but allowed.
func verifyVotes(decisions []Decision, votes VoteStats) error {
	if votes.AwaitingRetry > 0 {
		return fmt.Errorf("%d votes still awaiting retry", votes.AwaitingRetry)
	}
	if votes.Acknowledged != len(decisions) {
		return fmt.Errorf("%d votes acknowledged for %d decisions", votes.Acknowledged, len(decisions))
	}
	if votes.Failed > 0 {
		log.Printf("⚠️  %d vote attempts failed before succeeding", votes.Failed)
	}
	return nil
}

// verifyRanks checks the recommendation ranks run 1..n in order.
func verifyRanks(entries []Entry) error {
	for i, e := range entries {
		if e.Rank != i+1 {
			return fmt.Errorf("recommendation %s has rank %d at position %d", e.Name, e.Rank, i+1)
		}
	}
	return nil
}

// verifyRecommendationsExcludeDecided reports a decided candidate that is
// still recommended. Only some backends filter them out.
func verifyRecommendationsExcludeDecided(decisions []Decision, entries []Entry) error {
	decided := make(map[string]bool, len(decisions))
	for _, d := range decisions {
		decided[d.Candidate] = true
	}
	for _, e := range entries {
		if decided[e.Name] {
			return fmt.Errorf("decided candidate %s is still recommended", e.Name)
		}
	}
	return nil
}

// displayTopRecommendations shows the head of the recommendation list.
func displayTopRecommendations(entries []Entry, stats *Stats) {
	topN := min(10, len(entries))
	if topN == 0 {
		log.Println("🏁 No recommendations yet")
		return
	}

	log.Printf("🏆 Top %d recommendations after %d decisions:", topN, stats.DecisionsMade)
	for _, e := range entries[:topN] {
		if len(e.Categories) > 0 {
			log.Printf("   %d. %s - %s %.1f", e.Rank, e.Name, e.Categories[0].Category, e.Categories[0].Value)
		} else {
			log.Printf("   %d. %s", e.Rank, e.Name)
		}
	}
}
