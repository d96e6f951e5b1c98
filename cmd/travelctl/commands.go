package main

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"tripwise/internal/modules/conversation"
	"tripwise/internal/modules/intent"
	"tripwise/internal/modules/planner"
	"tripwise/internal/modules/search"
)

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newChatCmd() *cobra.Command {
	var userID string
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Talk to the assistant; /plan, /enhance and /quit are commands",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			e := envFrom(cmd)
			dlg := e.dialogue()
			out := cmd.OutOrStdout()
			in := bufio.NewScanner(cmd.InOrStdin())

			fmt.Fprint(out, "> ")
			for in.Scan() {
				line := strings.TrimSpace(in.Text())
				switch line {
				case "":
				case "/quit", "/exit":
					return nil
				case "/plan":
					if err := printJSON(out, e.store.CurrentPlan(userID)); err != nil {
						return err
					}
				case "/enhance":
					plan, err := dlg.EnhanceCurrentPlan(cmd.Context(), userID, planner.RequireAny(
						conversation.SectionFlight, conversation.SectionHotel, conversation.SectionActivities))
					if err != nil {
						fmt.Fprintf(out, "error: %v\n", err)
						break
					}
					if err := printJSON(out, plan); err != nil {
						return err
					}
				default:
					fmt.Fprintln(out, dlg.ProcessMessage(userID, line))
				}
				fmt.Fprint(out, "> ")
			}
			fmt.Fprintln(out)
			return in.Err()
		},
	}
	cmd.Flags().StringVarP(&userID, "user", "u", "cli", "Conversation user id")
	return cmd
}

func newExtractCmd() *cobra.Command {
	var useLLM bool
	cmd := &cobra.Command{
		Use:   "extract <text>",
		Short: "Show the travel intents found in a message",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text := strings.Join(args, " ")
			if useLLM {
				out, err := envFrom(cmd).planner.ExtractIntent(cmd.Context(), text)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), out)
			}
			return printJSON(cmd.OutOrStdout(), extractAll(intent.NewExtractor(), text))
		},
	}
	cmd.Flags().BoolVar(&useLLM, "llm", false, "Use the language model instead of the pattern extractor")
	return cmd
}

func extractAll(x *intent.Extractor, text string) map[string]any {
	found := map[string]any{
		"greeting":     intent.IsGreeting(text),
		"plan_request": intent.IsPlanRequest(text),
	}
	if fi, ok := x.Flight(text); ok {
		found["flight"] = fi.Params()
	}
	if hi, ok := x.Hotel(text); ok {
		found["hotel"] = map[string]any{"location": hi.Location, "city_code": hi.CityCode}
	}
	if ci, ok := x.City(text); ok {
		c := map[string]any{"country": ci.Country, "keyword": ci.Keyword}
		if code, ok := intent.CountryCode(ci.Country); ok {
			c["country_code"] = code
		}
		found["city"] = c
	}
	if act, ok := x.Activity(text); ok {
		found["activity"] = map[string]any{"location": act.Location}
	}
	return found
}

func newEnhanceCmd() *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "enhance --file plan.json",
		Short: "Turn a plan draft with a flight or budget section into an itinerary",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var r io.Reader = cmd.InOrStdin()
			if file != "" && file != "-" {
				f, err := os.Open(file)
				if err != nil {
					return err
				}
				defer f.Close()
				r = f
			}
			var plan planner.Plan
			if err := json.NewDecoder(r).Decode(&plan); err != nil {
				return fmt.Errorf("read plan: %w", err)
			}
			if err := planner.RequireAny("flight", "budget")(plan); err != nil {
				return err
			}
			enhanced, err := envFrom(cmd).planner.EnhancePlan(cmd.Context(), plan)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), enhanced)
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "-", "Plan JSON file, - for stdin")
	return cmd
}

func newSearchCmd() *cobra.Command {
	var params []string
	cmd := &cobra.Command{
		Use:       "search <flights|hotels|cities|activities> --param key=value",
		Short:     "Query the travel data provider",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"flights", "hotels", "cities", "activities"},
		RunE: func(cmd *cobra.Command, args []string) error {
			p := search.Params{}
			for _, kv := range params {
				k, v, ok := strings.Cut(kv, "=")
				if !ok || k == "" {
					return errors.New("params must look like key=value")
				}
				p[k] = v
			}
			svc, err := envFrom(cmd).search()
			if err != nil {
				return err
			}
			result, err := svc.Search(cmd.Context(), "", search.Kind(args[0]), p)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), result)
		},
	}
	cmd.Flags().StringArrayVarP(&params, "param", "p", nil, "Search parameter as key=value (repeatable)")
	return cmd
}
