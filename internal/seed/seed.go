package seed

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/pitchlabs/pitchcoach/internal/models"
	"github.com/pitchlabs/pitchcoach/internal/store"
)

// Demo account inserted when the user table is empty, so a fresh install can
// be exercised without registering first.
const (
	demoUsername = "demo"
	demoPassword = "demo1234"
	demoEmail    = "demo@pitchcoach.local"
)

// Run inserts any missing reference roles and scenarios (matched by name) and
// the demo user. It is idempotent and safe to call on every startup.
func Run(ctx context.Context, st *store.Store, logger *zap.SugaredLogger) error {
	now := time.Now().UTC()

	for _, role := range defaultRoles() {
		role.ID = uuid.NewString()
		role.CreatedAt = now
		created, err := st.Reference.CreateRole(ctx, &role)
		if err != nil {
			return fmt.Errorf("seed role %q: %w", role.Name, err)
		}
		if created {
			logger.Infow("seeded role", "name", role.Name)
		}
	}

	for _, scenario := range defaultScenarios() {
		scenario.ID = uuid.NewString()
		scenario.CreatedAt = now
		created, err := st.Reference.CreateScenario(ctx, &scenario)
		if err != nil {
			return fmt.Errorf("seed scenario %q: %w", scenario.Name, err)
		}
		if created {
			logger.Infow("seeded scenario", "name", scenario.Name)
		}
	}

	count, err := st.Users.Count(ctx)
	if err != nil {
		return fmt.Errorf("count users: %w", err)
	}
	if count == 0 {
		hash, err := bcrypt.GenerateFromPassword([]byte(demoPassword), bcrypt.DefaultCost)
		if err != nil {
			return fmt.Errorf("hash demo password: %w", err)
		}
		user := &models.User{
			ID:           uuid.NewString(),
			Username:     demoUsername,
			Email:        demoEmail,
			PasswordHash: string(hash),
			CreatedAt:    now,
		}
		if err := st.Users.Create(ctx, user); err != nil {
			return fmt.Errorf("seed demo user: %w", err)
		}
		logger.Infow("seeded demo user", "username", demoUsername)
	}

	return nil
}

func defaultRoles() []models.Role {
	return []models.Role{
		{
			Name:  "Margaret Chen",
			Title: "VP of Procurement",
			Style: "Skeptical, budget-driven, interrupts vague answers",
			Voice: "sage",
			Instructions: "You are Margaret Chen, VP of Procurement at a mid-size manufacturer. " +
				"You are evaluating vendors and care about total cost of ownership. " +
				"Push back on pricing, ask for references, and stay polite but firm.",
			PhotoURL: "/images/roles/margaret-chen.png",
		},
		{
			Name:  "Derek Olsen",
			Title: "Small Business Owner",
			Style: "Friendly but distracted, needs concrete outcomes",
			Voice: "verse",
			Instructions: "You are Derek Olsen, owner of a regional landscaping company. " +
				"You are busy, get sidetracked easily, and respond well to plain language " +
				"and concrete examples. You worry about switching costs.",
			PhotoURL: "/images/roles/derek-olsen.png",
		},
		{
			Name:  "Priya Nair",
			Title: "Director of Engineering",
			Style: "Technical, detail-oriented, allergic to buzzwords",
			Voice: "alloy",
			Instructions: "You are Priya Nair, Director of Engineering at a SaaS company. " +
				"You probe technical claims, ask about integrations and security, and " +
				"lose interest quickly when answers are evasive.",
			PhotoURL: "/images/roles/priya-nair.png",
		},
	}
}

func defaultScenarios() []models.Scenario {
	return []models.Scenario{
		{
			Name:        "Cold Call Introduction",
			Description: "Open a first conversation with a prospect who has never heard of you.",
			Instructions: "The user is cold-calling you. You did not expect this call and have " +
				"limited time. Make the user earn the next five minutes.",
			Rubric: []string{
				"Opens with a clear, relevant reason for the call",
				"Earns permission to continue within the first minute",
				"Asks discovery questions instead of pitching features",
				"Handles the first brush-off without becoming pushy",
				"Secures a concrete next step",
			},
		},
		{
			Name:        "Price Objection",
			Description: "Defend value when the prospect says the price is too high.",
			Instructions: "You like the product but genuinely believe it costs 30% more than " +
				"the budget allows. Raise the price objection early and repeat it if the " +
				"user does not address it directly.",
			Rubric: []string{
				"Acknowledges the objection before responding",
				"Reframes price in terms of value and outcomes",
				"Asks questions to understand the budget constraint",
				"Avoids discounting as the first response",
				"Confirms whether the objection is resolved",
			},
		},
		{
			Name:        "Renewal at Risk",
			Description: "Retain a customer who is considering a competitor at renewal time.",
			Instructions: "You are an existing customer 60 days from renewal. A competitor has " +
				"offered a lower price and you are unhappy about a support incident last " +
				"quarter. Be candid about both if asked, guarded if not.",
			Rubric: []string{
				"Surfaces the real reasons behind the churn risk",
				"Acknowledges the support incident without deflecting",
				"Quantifies the value delivered during the current term",
				"Counters the competitor comparison on merit, not price alone",
				"Agrees on a concrete save plan before ending the call",
			},
		},
	}
}
