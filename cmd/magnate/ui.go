package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"magnate/internal/game"

	"github.com/fatih/color"
	"github.com/shopspring/decimal"
)

var (
	stdinReader = bufio.NewReader(os.Stdin)
	accent      = color.New(color.FgCyan, color.Bold)
	success     = color.New(color.FgGreen, color.Bold)
	warn        = color.New(color.FgYellow, color.Bold)
	danger      = color.New(color.FgRed, color.Bold)
	neutral     = color.New(color.FgHiWhite)
)

type unitsPayload struct {
	Units []game.UnitView `json:"units"`
}

type unitDetailPayload struct {
	Unit      game.UnitView        `json:"unit"`
	Employees game.EmployeeView    `json:"employees"`
	Inventory []game.InventoryView `json:"inventory"`
}

type listingsPayload struct {
	Listings []game.ListingView `json:"listings"`
}

type recipesPayload struct {
	Recipes []game.RecipeView `json:"recipes"`
}

type queuePayload struct {
	Queue []game.QueueEntryView `json:"queue"`
}

type transactionsPayload struct {
	Transactions []game.TransactionView `json:"transactions"`
}

type leaderboardPayload struct {
	Rows []game.LeaderboardRow `json:"rows"`
}

type notificationsPayload struct {
	Notifications []game.NotificationView `json:"notifications"`
}

type citiesPayload struct {
	Cities []game.CityView `json:"cities"`
}

type resourcesPayload struct {
	Resources []game.ResourceView `json:"resources"`
}

func printSuccess(msg string) {
	success.Println(msg)
}

func printWarn(msg string) {
	warn.Println(msg)
}

func printError(msg string) {
	danger.Println(msg)
}

func printInfo(msg string) {
	neutral.Println(msg)
}

func promptRequired(label string) (string, error) {
	for {
		fmt.Printf("%s: ", label)
		text, err := stdinReader.ReadString('\n')
		if err != nil {
			return "", err
		}
		text = strings.TrimSpace(text)
		if text != "" {
			return text, nil
		}
		printWarn(label + " is required.")
	}
}

func promptOptional(label string) (string, error) {
	fmt.Printf("%s: ", label)
	text, err := stdinReader.ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(text), nil
}

func promptChoice(label string, options []string, defaultValue string) (string, error) {
	normalized := make(map[string]struct{}, len(options))
	for _, opt := range options {
		normalized[strings.ToLower(strings.TrimSpace(opt))] = struct{}{}
	}
	for {
		fmt.Printf("%s (%s) [%s]: ", label, strings.Join(options, "/"), defaultValue)
		text, err := stdinReader.ReadString('\n')
		if err != nil {
			return "", err
		}
		text = strings.ToLower(strings.TrimSpace(text))
		if text == "" {
			text = strings.ToLower(strings.TrimSpace(defaultValue))
		}
		if _, ok := normalized[text]; ok {
			return text, nil
		}
		printWarn("Invalid option. Please pick one of the listed values.")
	}
}

func promptInt64(label string, min int64) (int64, error) {
	for {
		text, err := promptRequired(label)
		if err != nil {
			return 0, err
		}
		v, err := strconv.ParseInt(text, 10, 64)
		if err != nil {
			printWarn("Enter a whole number.")
			continue
		}
		if v < min {
			printWarn(fmt.Sprintf("Value must be >= %d", min))
			continue
		}
		return v, nil
	}
}

func promptInt64Optional(label string) (int64, error) {
	for {
		text, err := promptOptional(label)
		if err != nil {
			return 0, err
		}
		if text == "" {
			return 0, nil
		}
		v, err := strconv.ParseInt(text, 10, 64)
		if err != nil || v <= 0 {
			printWarn("Enter a positive whole number or leave blank.")
			continue
		}
		return v, nil
	}
}

// promptDecimal returns the validated text unchanged; amounts travel
// as decimal strings and the server does the scaling.
func promptDecimal(label string) (string, error) {
	for {
		text, err := promptRequired(label)
		if err != nil {
			return "", err
		}
		v, err := decimal.NewFromString(text)
		if err != nil {
			printWarn("Enter a valid decimal amount.")
			continue
		}
		if v.Sign() <= 0 {
			printWarn("Amount must be positive.")
			continue
		}
		return text, nil
	}
}

func renderCompany(raw map[string]any) error {
	c, err := decodeInto[game.CompanyView](raw)
	if err != nil {
		return err
	}
	accent.Printf("\n== %s ==\n", c.Name)
	if strings.TrimSpace(c.Description) != "" {
		fmt.Printf("About:      %s\n", c.Description)
	}
	fmt.Printf("Cash:       %s\n", c.Cash)
	fmt.Printf("Reputation: %d\n", c.Reputation)
	fmt.Printf("Founded:    %s\n", c.Founded.Local().Format("2006-01-02"))
	fmt.Println()
	return nil
}

func renderUnit(raw map[string]any) error {
	u, err := decodeInto[game.UnitView](raw)
	if err != nil {
		return err
	}
	printSuccess(fmt.Sprintf("Unit built: #%d %s (%s, size %d) in city %d", u.ID, u.Name, u.Type, u.Size, u.CityID))
	return nil
}

func renderUnitsList(raw map[string]any) error {
	payload, err := decodeInto[unitsPayload](raw)
	if err != nil {
		return err
	}
	accent.Println("\n== BUSINESS UNITS ==")
	if len(payload.Units) == 0 {
		printInfo("No business units yet.")
		return nil
	}
	fmt.Printf("%-6s %-20s %-10s %-6s %6s %6s %10s %-8s\n", "ID", "NAME", "TYPE", "CITY", "SIZE", "COND", "EFFIC.", "ACTIVE")
	for _, u := range payload.Units {
		active := "yes"
		if !u.IsActive {
			active = "no"
		}
		fmt.Printf("%-6d %-20s %-10s %-6d %6d %6d %9.2f%% %-8s\n",
			u.ID,
			truncate(u.Name, 20),
			u.Type,
			u.CityID,
			u.Size,
			u.Condition,
			float64(u.EfficiencyBps)/100,
			active,
		)
	}
	fmt.Println()
	return nil
}

func renderUnitDetail(raw map[string]any) error {
	d, err := decodeInto[unitDetailPayload](raw)
	if err != nil {
		return err
	}
	u := d.Unit
	accent.Printf("\n== UNIT #%d %s ==\n", u.ID, u.Name)
	fmt.Printf("Type:       %s\n", u.Type)
	fmt.Printf("City:       %d\n", u.CityID)
	fmt.Printf("Size:       %d\n", u.Size)
	fmt.Printf("Condition:  %d\n", u.Condition)
	fmt.Printf("Efficiency: %.2f%%\n", float64(u.EfficiencyBps)/100)
	fmt.Printf("Active:     %t\n", u.IsActive)
	fmt.Printf("Employees:  %d at %s (morale %d)\n", d.Employees.Count, d.Employees.Salary, d.Employees.Morale)

	fmt.Println()
	accent.Println("Inventory")
	if len(d.Inventory) == 0 {
		printInfo("Inventory is empty.")
	} else {
		fmt.Printf("%-6s %-16s %12s %9s %12s\n", "RES", "NAME", "QTY", "QUALITY", "AVG COST")
		for _, inv := range d.Inventory {
			fmt.Printf("%-6d %-16s %12s %8.2f%% %12s\n",
				inv.ResourceID,
				truncate(inv.ResourceName, 16),
				inv.Quantity,
				float64(inv.QualityBps)/100,
				inv.AverageCost,
			)
		}
	}
	fmt.Println()
	return nil
}

func renderListing(raw map[string]any) error {
	l, err := decodeInto[game.ListingView](raw)
	if err != nil {
		return err
	}
	printSuccess(fmt.Sprintf("Listing #%d created: %s x %s at %s each", l.ID, l.ResourceCode, l.Quantity, l.PricePerUnit))
	return nil
}

func renderListings(raw map[string]any) error {
	payload, err := decodeInto[listingsPayload](raw)
	if err != nil {
		return err
	}
	accent.Println("\n== MARKET LISTINGS ==")
	if len(payload.Listings) == 0 {
		printInfo("No active listings.")
		return nil
	}
	fmt.Printf("%-6s %-18s %-10s %12s %9s %12s %-6s\n", "ID", "SELLER", "RESOURCE", "QTY", "QUALITY", "PRICE", "CITY")
	for _, l := range payload.Listings {
		fmt.Printf("%-6d %-18s %-10s %12s %8.2f%% %12s %-6d\n",
			l.ID,
			truncate(l.CompanyName, 18),
			truncate(l.ResourceCode, 10),
			l.Quantity,
			float64(l.QualityBps)/100,
			l.PricePerUnit,
			l.CityID,
		)
	}
	fmt.Println()
	return nil
}

func renderPurchase(raw map[string]any) error {
	out, err := decodeInto[game.PurchaseResult](raw)
	if err != nil {
		return err
	}
	accent.Println("\n== PURCHASE ==")
	fmt.Printf("Listing:    #%d\n", out.ListingID)
	fmt.Printf("Quantity:   %s\n", out.Quantity)
	fmt.Printf("Total cost: %s\n", out.TotalCost)
	fmt.Printf("Cash left:  %s\n", out.BuyerCash)
	if out.ListingActive {
		fmt.Printf("Remaining:  %s on the listing\n", out.ListingRemaining)
	} else {
		printInfo("Listing sold out.")
	}
	fmt.Println()
	return nil
}

func renderRecipes(raw map[string]any) error {
	payload, err := decodeInto[recipesPayload](raw)
	if err != nil {
		return err
	}
	accent.Println("\n== RECIPES ==")
	if len(payload.Recipes) == 0 {
		printInfo("No recipes found.")
		return nil
	}
	fmt.Printf("%-6s %-28s %-10s %12s %7s %6s\n", "ID", "NAME", "UNIT", "OUTPUT", "LABOR", "TURNS")
	for _, r := range payload.Recipes {
		inputs := make([]string, 0, len(r.Inputs))
		for _, in := range r.Inputs {
			inputs = append(inputs, fmt.Sprintf("%d x %s", in.ResourceID, in.Quantity))
		}
		fmt.Printf("%-6d %-28s %-10s %12s %7d %6d\n",
			r.ID,
			truncate(r.Description, 28),
			r.UnitType,
			r.OutputQuantity,
			r.LaborRequired,
			r.TimeRequired,
		)
		if len(inputs) > 0 {
			printInfo("       inputs: " + strings.Join(inputs, ", "))
		}
	}
	fmt.Println()
	return nil
}

func renderQueue(raw map[string]any) error {
	payload, err := decodeInto[queuePayload](raw)
	if err != nil {
		return err
	}
	accent.Println("\n== PRODUCTION QUEUE ==")
	if len(payload.Queue) == 0 {
		printInfo("No production runs in progress.")
		return nil
	}
	fmt.Printf("%-6s %-6s %-28s %8s %10s %8s\n", "ID", "UNIT", "RECIPE", "BATCHES", "PROGRESS", "STARTED")
	for _, q := range payload.Queue {
		fmt.Printf("%-6d %-6d %-28s %8d %9.2f%% %8d\n",
			q.ID,
			q.UnitID,
			truncate(q.Description, 28),
			q.Batches,
			float64(q.ProgressBps)/100,
			q.StartedTurn,
		)
	}
	fmt.Println()
	return nil
}

func renderQueueEntry(raw map[string]any) error {
	q, err := decodeInto[game.QueueEntryView](raw)
	if err != nil {
		return err
	}
	printSuccess(fmt.Sprintf("Production run #%d started: %s x%d at unit %d", q.ID, q.Description, q.Batches, q.UnitID))
	return nil
}

func renderTransactions(raw map[string]any) error {
	payload, err := decodeInto[transactionsPayload](raw)
	if err != nil {
		return err
	}
	accent.Println("\n== LEDGER ==")
	if len(payload.Transactions) == 0 {
		printInfo("No transactions yet.")
		return nil
	}
	fmt.Printf("%-8s %-14s %14s %-36s %-16s\n", "ID", "TYPE", "AMOUNT", "DESCRIPTION", "WHEN")
	for _, t := range payload.Transactions {
		fmt.Printf("%-8d %-14s %14s %-36s %-16s\n",
			t.ID,
			t.Type,
			colorizeAmount(t.Amount),
			truncate(t.Description, 36),
			t.CreatedAt.Local().Format("2006-01-02 15:04"),
		)
	}
	fmt.Println()
	return nil
}

func renderLeaderboard(raw map[string]any) error {
	payload, err := decodeInto[leaderboardPayload](raw)
	if err != nil {
		return err
	}
	accent.Println("\n== LEADERBOARD ==")
	if len(payload.Rows) == 0 {
		printInfo("No companies yet.")
		return nil
	}
	fmt.Printf("%-6s %-24s %16s %6s\n", "RANK", "COMPANY", "CASH", "REP")
	for _, row := range payload.Rows {
		fmt.Printf("%-6d %-24s %16s %6d\n",
			row.Rank,
			truncate(row.Company, 24),
			row.Cash,
			row.Reputation,
		)
	}
	fmt.Println()
	return nil
}

func renderNotifications(raw map[string]any) error {
	payload, err := decodeInto[notificationsPayload](raw)
	if err != nil {
		return err
	}
	accent.Println("\n== NOTIFICATIONS ==")
	if len(payload.Notifications) == 0 {
		printInfo("No unread notifications.")
		return nil
	}
	for _, n := range payload.Notifications {
		fmt.Printf("#%-6d [%s] %s\n", n.ID, n.Kind, n.Title)
		if strings.TrimSpace(n.Message) != "" {
			printInfo("        " + n.Message)
		}
	}
	fmt.Println()
	return nil
}

func renderCities(raw map[string]any) error {
	payload, err := decodeInto[citiesPayload](raw)
	if err != nil {
		return err
	}
	accent.Println("\n== CITIES ==")
	fmt.Printf("%-6s %-16s %-14s %12s %8s %8s\n", "ID", "NAME", "COUNTRY", "POPULATION", "WEALTH", "TAX")
	for _, c := range payload.Cities {
		fmt.Printf("%-6d %-16s %-14s %12d %8s %8s\n",
			c.ID,
			truncate(c.Name, 16),
			truncate(c.Country, 14),
			c.Population,
			c.WealthIndex,
			c.TaxRate,
		)
	}
	fmt.Println()
	return nil
}

func renderResources(raw map[string]any) error {
	payload, err := decodeInto[resourcesPayload](raw)
	if err != nil {
		return err
	}
	accent.Println("\n== RESOURCES ==")
	fmt.Printf("%-6s %-14s %-20s %-14s %12s %-8s\n", "ID", "CODE", "NAME", "CATEGORY", "BASE", "UNIT")
	for _, r := range payload.Resources {
		fmt.Printf("%-6d %-14s %-20s %-14s %12s %-8s\n",
			r.ID,
			r.Code,
			truncate(r.Name, 20),
			r.Category,
			r.BasePrice,
			r.Unit,
		)
	}
	fmt.Println()
	return nil
}

func renderGameState(raw map[string]any) error {
	st, err := decodeInto[game.GameStateView](raw)
	if err != nil {
		return err
	}
	accent.Println("\n== GAME STATE ==")
	fmt.Printf("Current turn:  %d\n", st.CurrentTurn)
	fmt.Printf("Turn duration: %ds\n", st.TurnDuration)
	if st.LastTurnAt != nil {
		fmt.Printf("Last turn at:  %s\n", st.LastTurnAt.Local().Format("2006-01-02 15:04"))
	}
	fmt.Println()
	return nil
}

func renderSimpleOK(raw map[string]any, successMessage string) error {
	ok := false
	if v, has := raw["ok"]; has {
		switch t := v.(type) {
		case bool:
			ok = t
		case string:
			ok = strings.EqualFold(strings.TrimSpace(t), "true")
		}
	}
	if ok || successMessage != "" {
		printSuccess(successMessage)
		return nil
	}
	printInfo("Done.")
	return nil
}

func decodeInto[T any](in any) (T, error) {
	var out T
	raw, err := json.Marshal(in)
	if err != nil {
		return out, err
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return out, err
	}
	return out, nil
}

func colorizeAmount(amount string) string {
	trimmed := strings.TrimSpace(amount)
	v, err := decimal.NewFromString(trimmed)
	if err != nil {
		return neutral.Sprint(trimmed)
	}
	switch {
	case v.Sign() > 0:
		return success.Sprint("+" + trimmed)
	case v.Sign() < 0:
		return danger.Sprint(trimmed)
	default:
		return neutral.Sprint(trimmed)
	}
}

func truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	if n <= 0 || len(s) <= n {
		return s
	}
	if n <= 3 {
		return s[:n]
	}
	return s[:n-3] + "..."
}
