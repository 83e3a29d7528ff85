package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	cl "magnate/internal/cli"
	"magnate/internal/config"
	"magnate/internal/syncq"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

func main() {
	cfg := config.LoadCLIFromEnv()
	apiBase := cfg.APIBaseURL

	root := &cobra.Command{
		Use:          "magnate",
		Short:        "Magnate CLI game client",
		SilenceUsage: true,
	}

	root.AddCommand(
		newSignupCmd(&apiBase),
		newLoginCmd(&apiBase),
		newLogoutCmd(),
		newCompanyCmd(&apiBase),
		newUnitsCmd(&apiBase),
		newMarketCmd(&apiBase),
		newProductionCmd(&apiBase),
		newLedgerCmd(&apiBase),
		newLeaderboardCmd(&apiBase),
		newNotificationsCmd(&apiBase),
		newCitiesCmd(&apiBase),
		newResourcesCmd(&apiBase),
		newStateCmd(&apiBase),
		newSyncCmd(&apiBase),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newClient(apiBase *string) *cl.Client {
	return cl.NewClient(strings.TrimRight(strings.TrimSpace(*apiBase), "/"))
}

func newSignupCmd(apiBase *string) *cobra.Command {
	return &cobra.Command{
		Use:   "signup",
		Short: "Create a Magnate account",
		RunE: func(cmd *cobra.Command, args []string) error {
			email, err := promptRequired("Email")
			if err != nil {
				return err
			}
			password, err := promptRequired("Password")
			if err != nil {
				return err
			}
			username, err := promptOptional("Username (optional)")
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			client := newClient(apiBase)
			session, err := client.Signup(ctx, email, password, username)
			if err != nil {
				return err
			}
			if strings.TrimSpace(session.AccessToken) == "" {
				printWarn("Signup created. Verify email, then run `magnate login`.")
				return nil
			}
			if err := cl.SaveSession(cl.Session{
				AccessToken:  session.AccessToken,
				RefreshToken: session.RefreshToken,
				Email:        session.User.Email,
				UserID:       session.User.ID,
			}); err != nil {
				return err
			}
			printSuccess("Signup complete. Session saved.")
			return nil
		},
	}
}

func newLoginCmd(apiBase *string) *cobra.Command {
	return &cobra.Command{
		Use:   "login",
		Short: "Login to Magnate",
		RunE: func(cmd *cobra.Command, args []string) error {
			email, err := promptRequired("Email")
			if err != nil {
				return err
			}
			password, err := promptRequired("Password")
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			client := newClient(apiBase)
			session, err := client.Login(ctx, email, password)
			if err != nil {
				return err
			}
			if err := cl.SaveSession(cl.Session{
				AccessToken:  session.AccessToken,
				RefreshToken: session.RefreshToken,
				Email:        session.User.Email,
				UserID:       session.User.ID,
			}); err != nil {
				return err
			}
			printSuccess("Login successful.")
			return nil
		},
	}
}

func newLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Clear local session token",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cl.ClearSession(); err != nil {
				return err
			}
			printSuccess("Logged out.")
			return nil
		},
	}
}

func newCompanyCmd(apiBase *string) *cobra.Command {
	company := &cobra.Command{
		Use:   "company",
		Short: "Company commands",
	}
	company.AddCommand(&cobra.Command{
		Use:   "create [name]",
		Short: "Found your company",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := cl.LoadSession()
			if err != nil {
				return fmt.Errorf("login required: %w", err)
			}
			name := ""
			if len(args) > 0 {
				name = strings.TrimSpace(args[0])
			} else {
				name, err = promptRequired("Company name")
				if err != nil {
					return err
				}
			}
			description, err := promptOptional("Description (optional)")
			if err != nil {
				return err
			}
			idem := uuid.NewString()
			body := map[string]any{"name": name, "description": description}
			client := newClient(apiBase)
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			out, err := client.CreateCompany(ctx, sess.AccessToken, name, description, idem)
			if err != nil {
				return queueOnNetworkError(err, syncq.Command{
					Method:         "POST",
					Path:           "/v1/company",
					Body:           body,
					IdempotencyKey: idem,
				})
			}
			return renderCompany(out)
		},
	})
	company.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show your company",
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := cl.LoadSession()
			if err != nil {
				return fmt.Errorf("login required: %w", err)
			}
			client := newClient(apiBase)
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			out, err := client.MyCompany(ctx, sess.AccessToken)
			if err != nil {
				return err
			}
			return renderCompany(out)
		},
	})
	return company
}

func newUnitsCmd(apiBase *string) *cobra.Command {
	units := &cobra.Command{
		Use:     "units",
		Short:   "Business unit commands",
		Aliases: []string{"unit"},
	}
	units.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List your business units",
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := cl.LoadSession()
			if err != nil {
				return fmt.Errorf("login required: %w", err)
			}
			client := newClient(apiBase)
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			out, err := client.ListUnits(ctx, sess.AccessToken)
			if err != nil {
				return err
			}
			return renderUnitsList(out)
		},
	})
	units.AddCommand(&cobra.Command{
		Use:   "show [unit_id]",
		Short: "Show a unit with employees and inventory",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := cl.LoadSession()
			if err != nil {
				return fmt.Errorf("login required: %w", err)
			}
			id, err := int64FromArgOrPrompt(args, 0, "Unit ID")
			if err != nil {
				return err
			}
			client := newClient(apiBase)
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			out, err := client.UnitDetail(ctx, sess.AccessToken, id)
			if err != nil {
				return err
			}
			return renderUnitDetail(out)
		},
	})
	units.AddCommand(&cobra.Command{
		Use:   "create",
		Short: "Build a new business unit",
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := cl.LoadSession()
			if err != nil {
				return fmt.Errorf("login required: %w", err)
			}
			unitType, err := promptChoice("Unit type", []string{"office", "store", "factory", "mine", "farm", "laboratory"}, "factory")
			if err != nil {
				return err
			}
			name, err := promptRequired("Unit name")
			if err != nil {
				return err
			}
			cityID, err := promptInt64("City ID", 1)
			if err != nil {
				return err
			}
			size, err := promptInt64("Size (100 = standard)", 50)
			if err != nil {
				return err
			}
			idem := uuid.NewString()
			body := map[string]any{
				"type":    unitType,
				"name":    name,
				"city_id": cityID,
				"size":    size,
			}
			client := newClient(apiBase)
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			out, err := client.CreateUnit(ctx, sess.AccessToken, unitType, name, cityID, int32(size), idem)
			if err != nil {
				return queueOnNetworkError(err, syncq.Command{
					Method:         "POST",
					Path:           "/v1/units",
					Body:           body,
					IdempotencyKey: idem,
				})
			}
			return renderUnit(out)
		},
	})
	units.AddCommand(&cobra.Command{
		Use:   "employees [unit_id]",
		Short: "Set a unit's headcount and salary",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := cl.LoadSession()
			if err != nil {
				return fmt.Errorf("login required: %w", err)
			}
			id, err := int64FromArgOrPrompt(args, 0, "Unit ID")
			if err != nil {
				return err
			}
			count, err := promptInt64("Employee count", 0)
			if err != nil {
				return err
			}
			salary, err := promptDecimal("Salary per employee per turn")
			if err != nil {
				return err
			}
			idem := uuid.NewString()
			body := map[string]any{"count": count, "salary": salary}
			path := fmt.Sprintf("/v1/units/%d/employees", id)
			client := newClient(apiBase)
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			out, err := client.SetEmployees(ctx, sess.AccessToken, id, int32(count), salary, idem)
			if err != nil {
				return queueOnNetworkError(err, syncq.Command{
					Method:         "POST",
					Path:           path,
					Body:           body,
					IdempotencyKey: idem,
				})
			}
			return renderSimpleOK(out, fmt.Sprintf("Unit %d staffed with %d employees at %s each.", id, count, salary))
		},
	})
	return units
}

func newMarketCmd(apiBase *string) *cobra.Command {
	market := &cobra.Command{
		Use:   "market",
		Short: "Goods market commands",
	}
	market.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "Browse active listings",
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := cl.LoadSession()
			if err != nil {
				return fmt.Errorf("login required: %w", err)
			}
			resourceID, err := promptInt64Optional("Filter resource ID (blank for all)")
			if err != nil {
				return err
			}
			client := newClient(apiBase)
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			out, err := client.ListListings(ctx, sess.AccessToken, resourceID, 0)
			if err != nil {
				return err
			}
			return renderListings(out)
		},
	})
	market.AddCommand(&cobra.Command{
		Use:   "sell",
		Short: "List goods from a unit's inventory for sale",
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := cl.LoadSession()
			if err != nil {
				return fmt.Errorf("login required: %w", err)
			}
			unitID, err := promptInt64("Unit ID", 1)
			if err != nil {
				return err
			}
			resourceID, err := promptInt64("Resource ID", 1)
			if err != nil {
				return err
			}
			quantity, err := promptDecimal("Quantity")
			if err != nil {
				return err
			}
			price, err := promptDecimal("Price per unit")
			if err != nil {
				return err
			}
			idem := uuid.NewString()
			body := map[string]any{
				"unit_id":        unitID,
				"resource_id":    resourceID,
				"quantity":       quantity,
				"price_per_unit": price,
			}
			client := newClient(apiBase)
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			out, err := client.CreateListing(ctx, sess.AccessToken, unitID, resourceID, quantity, price, idem)
			if err != nil {
				return queueOnNetworkError(err, syncq.Command{
					Method:         "POST",
					Path:           "/v1/market/listings",
					Body:           body,
					IdempotencyKey: idem,
				})
			}
			return renderListing(out)
		},
	})
	market.AddCommand(&cobra.Command{
		Use:   "buy [listing_id]",
		Short: "Buy from a listing into one of your units",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := cl.LoadSession()
			if err != nil {
				return fmt.Errorf("login required: %w", err)
			}
			listingID, err := int64FromArgOrPrompt(args, 0, "Listing ID")
			if err != nil {
				return err
			}
			quantity, err := promptDecimal("Quantity")
			if err != nil {
				return err
			}
			destUnitID, err := promptInt64("Destination unit ID", 1)
			if err != nil {
				return err
			}
			idem := uuid.NewString()
			body := map[string]any{
				"quantity":            quantity,
				"destination_unit_id": destUnitID,
			}
			path := fmt.Sprintf("/v1/market/listings/%d/purchase", listingID)
			client := newClient(apiBase)
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			out, err := client.Purchase(ctx, sess.AccessToken, listingID, quantity, destUnitID, idem)
			if err != nil {
				return queueOnNetworkError(err, syncq.Command{
					Method:         "POST",
					Path:           path,
					Body:           body,
					IdempotencyKey: idem,
				})
			}
			return renderPurchase(out)
		},
	})
	market.AddCommand(&cobra.Command{
		Use:   "cancel [listing_id]",
		Short: "Cancel your listing and reclaim the goods",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := cl.LoadSession()
			if err != nil {
				return fmt.Errorf("login required: %w", err)
			}
			listingID, err := int64FromArgOrPrompt(args, 0, "Listing ID")
			if err != nil {
				return err
			}
			idem := uuid.NewString()
			path := fmt.Sprintf("/v1/market/listings/%d/cancel", listingID)
			client := newClient(apiBase)
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			out, err := client.CancelListing(ctx, sess.AccessToken, listingID, idem)
			if err != nil {
				return queueOnNetworkError(err, syncq.Command{
					Method:         "POST",
					Path:           path,
					Body:           map[string]any{},
					IdempotencyKey: idem,
				})
			}
			return renderSimpleOK(out, fmt.Sprintf("Listing %d cancelled. Goods returned to your unit.", listingID))
		},
	})
	return market
}

func newProductionCmd(apiBase *string) *cobra.Command {
	production := &cobra.Command{
		Use:     "production",
		Short:   "Production commands",
		Aliases: []string{"prod"},
	}
	production.AddCommand(&cobra.Command{
		Use:   "recipes [unit_type]",
		Short: "List production recipes",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := cl.LoadSession()
			if err != nil {
				return fmt.Errorf("login required: %w", err)
			}
			unitType := ""
			if len(args) > 0 {
				unitType = strings.ToLower(strings.TrimSpace(args[0]))
			}
			client := newClient(apiBase)
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			out, err := client.Recipes(ctx, sess.AccessToken, unitType)
			if err != nil {
				return err
			}
			return renderRecipes(out)
		},
	})
	production.AddCommand(&cobra.Command{
		Use:   "queue",
		Short: "Show your active production jobs",
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := cl.LoadSession()
			if err != nil {
				return fmt.Errorf("login required: %w", err)
			}
			client := newClient(apiBase)
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			out, err := client.ProductionQueue(ctx, sess.AccessToken)
			if err != nil {
				return err
			}
			return renderQueue(out)
		},
	})
	production.AddCommand(&cobra.Command{
		Use:   "start",
		Short: "Start a production run",
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := cl.LoadSession()
			if err != nil {
				return fmt.Errorf("login required: %w", err)
			}
			unitID, err := promptInt64("Unit ID", 1)
			if err != nil {
				return err
			}
			recipeID, err := promptInt64("Recipe ID", 1)
			if err != nil {
				return err
			}
			batches, err := promptInt64("Batches", 1)
			if err != nil {
				return err
			}
			idem := uuid.NewString()
			body := map[string]any{
				"unit_id":   unitID,
				"recipe_id": recipeID,
				"batches":   batches,
			}
			client := newClient(apiBase)
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			out, err := client.StartProduction(ctx, sess.AccessToken, unitID, recipeID, batches, idem)
			if err != nil {
				return queueOnNetworkError(err, syncq.Command{
					Method:         "POST",
					Path:           "/v1/production",
					Body:           body,
					IdempotencyKey: idem,
				})
			}
			return renderQueueEntry(out)
		},
	})
	production.AddCommand(&cobra.Command{
		Use:   "cancel [queue_id]",
		Short: "Cancel a production run (partial input refund)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := cl.LoadSession()
			if err != nil {
				return fmt.Errorf("login required: %w", err)
			}
			queueID, err := int64FromArgOrPrompt(args, 0, "Queue entry ID")
			if err != nil {
				return err
			}
			idem := uuid.NewString()
			path := fmt.Sprintf("/v1/production/%d/cancel", queueID)
			client := newClient(apiBase)
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			out, err := client.CancelProduction(ctx, sess.AccessToken, queueID, idem)
			if err != nil {
				return queueOnNetworkError(err, syncq.Command{
					Method:         "POST",
					Path:           path,
					Body:           map[string]any{},
					IdempotencyKey: idem,
				})
			}
			return renderSimpleOK(out, fmt.Sprintf("Production run %d cancelled.", queueID))
		},
	})
	return production
}

func newLedgerCmd(apiBase *string) *cobra.Command {
	return &cobra.Command{
		Use:   "ledger",
		Short: "Show your recent transactions",
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := cl.LoadSession()
			if err != nil {
				return fmt.Errorf("login required: %w", err)
			}
			client := newClient(apiBase)
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			out, err := client.Transactions(ctx, sess.AccessToken, 50)
			if err != nil {
				return err
			}
			return renderTransactions(out)
		},
	}
}

func newLeaderboardCmd(apiBase *string) *cobra.Command {
	return &cobra.Command{
		Use:   "leaderboard",
		Short: "Richest companies",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := newClient(apiBase)
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			out, err := client.Leaderboard(ctx)
			if err != nil {
				return err
			}
			return renderLeaderboard(out)
		},
	}
}

func newNotificationsCmd(apiBase *string) *cobra.Command {
	notifications := &cobra.Command{
		Use:     "notifications",
		Short:   "Notification commands",
		Aliases: []string{"notif"},
	}
	notifications.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List unread notifications",
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := cl.LoadSession()
			if err != nil {
				return fmt.Errorf("login required: %w", err)
			}
			client := newClient(apiBase)
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			out, err := client.Notifications(ctx, sess.AccessToken, true)
			if err != nil {
				return err
			}
			return renderNotifications(out)
		},
	})
	notifications.AddCommand(&cobra.Command{
		Use:   "read [notification_id]",
		Short: "Mark a notification as read",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := cl.LoadSession()
			if err != nil {
				return fmt.Errorf("login required: %w", err)
			}
			id, err := int64FromArgOrPrompt(args, 0, "Notification ID")
			if err != nil {
				return err
			}
			client := newClient(apiBase)
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			out, err := client.MarkNotificationRead(ctx, sess.AccessToken, id)
			if err != nil {
				return err
			}
			return renderSimpleOK(out, fmt.Sprintf("Notification %d marked read.", id))
		},
	})
	return notifications
}

func newCitiesCmd(apiBase *string) *cobra.Command {
	return &cobra.Command{
		Use:   "cities",
		Short: "List cities",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := newClient(apiBase)
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			out, err := client.Cities(ctx)
			if err != nil {
				return err
			}
			return renderCities(out)
		},
	}
}

func newResourcesCmd(apiBase *string) *cobra.Command {
	return &cobra.Command{
		Use:   "resources",
		Short: "List resource types",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := newClient(apiBase)
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			out, err := client.Resources(ctx)
			if err != nil {
				return err
			}
			return renderResources(out)
		},
	}
}

func newStateCmd(apiBase *string) *cobra.Command {
	return &cobra.Command{
		Use:   "state",
		Short: "Show the current game turn",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := newClient(apiBase)
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			out, err := client.GameState(ctx)
			if err != nil {
				return err
			}
			return renderGameState(out)
		},
	}
}

func newSyncCmd(apiBase *string) *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Replay locally queued offline writes",
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := cl.LoadSession()
			if err != nil {
				return fmt.Errorf("login required: %w", err)
			}
			queue, err := syncq.Load()
			if err != nil {
				return err
			}
			if len(queue) == 0 {
				printInfo("Sync queue is empty.")
				return nil
			}
			client := newClient(apiBase)
			ctx, cancel := context.WithTimeout(cmd.Context(), 60*time.Second)
			defer cancel()

			remaining := make([]syncq.Command, 0, len(queue))
			success := 0
			for _, q := range queue {
				_, err := client.Do(ctx, q.Method, q.Path, sess.AccessToken, q.Body, q.IdempotencyKey)
				if err != nil {
					remaining = append(remaining, q)
					printError(fmt.Sprintf("Sync failed for %s %s: %v", q.Method, q.Path, err))
					continue
				}
				success++
			}
			if err := syncq.Save(remaining); err != nil {
				return err
			}
			printSuccess(fmt.Sprintf("Sync complete: replayed=%d remaining=%d", success, len(remaining)))
			return nil
		},
	}
}

// queueOnNetworkError stores the command locally when the API was
// unreachable; structured API rejections are surfaced as-is because
// replaying them later would fail the same way.
func queueOnNetworkError(err error, cmd syncq.Command) error {
	if err == nil {
		return nil
	}
	if isAPIStructuredError(err) {
		return err
	}
	if qErr := syncq.Push(cmd); qErr != nil {
		return fmt.Errorf("request failed and could not be queued: %w", err)
	}
	printWarn(fmt.Sprintf("API unreachable. Queued %s %s for `magnate sync`.", cmd.Method, cmd.Path))
	return nil
}

func isAPIStructuredError(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "api status")
}

func int64FromArgOrPrompt(args []string, idx int, label string) (int64, error) {
	if len(args) > idx {
		v, err := strconv.ParseInt(strings.TrimSpace(args[idx]), 10, 64)
		if err != nil || v <= 0 {
			return 0, fmt.Errorf("invalid %s", strings.ToLower(label))
		}
		return v, nil
	}
	return promptInt64(label, 1)
}
