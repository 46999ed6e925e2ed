package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/url"
	"os"
	"sort"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/voyagen/watchvault/internal/models"
	"github.com/voyagen/watchvault/internal/ratings"
	"github.com/voyagen/watchvault/internal/tmdb"
	"github.com/voyagen/watchvault/internal/validator"
	"github.com/voyagen/watchvault/internal/viewstate"
)

func (a *app) cmdList(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("list", flag.ContinueOnError)
	mediaType := fs.String("type", "all", "all, movie or series")
	search := fs.String("search", "", "match title, date watched or year")
	filter := fs.String("filter", "all", "tag filter")
	sortBy := fs.String("sort", "", "sort key, prefix with - for descending")
	reverse := fs.Bool("reverse", false, "flip the sort direction")
	clearFilters := fs.Bool("clear", false, "ignore -search and -filter")
	rest, err := parseFlags(fs, args)
	if err != nil {
		return err
	}

	kind := models.ListToWatch
	if len(rest) > 0 {
		kind = models.ListKind(rest[0])
	}
	if !kind.Valid() {
		return fmt.Errorf("list: unknown list %q (to-watch or watched)", kind)
	}

	q := url.Values{
		viewstate.ParamMediaType: {*mediaType},
		viewstate.ParamSearch:    {*search},
		viewstate.ParamFilter:    {*filter},
		viewstate.ParamSort:      {*sortBy},
	}
	v := validator.New()
	p := viewstate.ParseParams(q, v)
	if !v.Valid() {
		return fmt.Errorf("list: %s", formatErrors(v.Errors))
	}
	if *reverse {
		p.Sort = p.Sort.Toggle()
	}
	if *clearFilters {
		p = p.ClearFilters()
	}
	if err := checkSortOffered(kind, p.Sort); err != nil {
		return err
	}

	view, err := a.list.Load(ctx, kind, p)
	if err != nil {
		return err
	}

	fmt.Println(view.Summary(p.MediaType))
	if view.Empty() {
		fmt.Println(viewstate.NoItemsMessage)
		if p.FiltersApplied() && view.Total > 0 {
			fmt.Println("(search or tag filter applied; use -clear to show everything)")
		}
		return nil
	}
	printMedia(kind, view.Items)
	return nil
}

func checkSortOffered(kind models.ListKind, s viewstate.Sort) error {
	var offered []string
	for _, o := range viewstate.SortOptions(kind) {
		if o.Key == s.Key {
			return nil
		}
		offered = append(offered, o.Key.Param())
	}
	return fmt.Errorf("list: %s list cannot be sorted by %s (one of %s)", kind, s.Key.Param(), strings.Join(offered, ", "))
}

func formatErrors(errs map[string]string) string {
	keys := make([]string, 0, len(errs))
	for k := range errs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + " " + errs[k]
	}
	return strings.Join(parts, "; ")
}

func printMedia(kind models.ListKind, items []models.Media) {
	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	defer tw.Flush()

	rtLabel, imdbLabel := ratings.SourceRottenTomatoes.Short(), ratings.SourceIMDb.Short()
	if kind == models.ListWatched {
		fmt.Fprintf(tw, "ID\tTITLE\tYEAR\tTYPE\tWATCHED\t%s\t%s\t%s\tTAGS\n", ratings.SourceUser.Short(), rtLabel, imdbLabel)
	} else {
		fmt.Fprintf(tw, "ID\tTITLE\tYEAR\tTYPE\t%s\t%s\tTAGS\n", rtLabel, imdbLabel)
	}
	for _, m := range items {
		rt := ratingCell(m.Ratings, ratings.SourceRottenTomatoes)
		imdb := ratingCell(m.Ratings, ratings.SourceIMDb)
		tags := tagList(m.Tags)
		if kind == models.ListWatched {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n", m.ID, m.Title, viewstate.OrNA(m.Year), m.MediaType,
				viewstate.OrNA(m.DateWatched), ratings.FloatToPercentage(m.Rating), rt, imdb, tags)
			continue
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n", m.ID, m.Title, viewstate.OrNA(m.Year), m.MediaType, rt, imdb, tags)
	}
}

func ratingCell(blob string, src ratings.Source) string {
	r, ok := ratings.Find(blob, src)
	if !ok {
		return "N/A"
	}
	return ratings.RatioToPercentage(r.Value)
}

func tagList(tags []models.Tag) string {
	if len(tags) == 0 {
		return "-"
	}
	s := make([]string, len(tags))
	for i, t := range tags {
		s[i] = string(t)
	}
	return strings.Join(s, ",")
}

func (a *app) cmdSearch(ctx context.Context, args []string) error {
	text := strings.TrimSpace(strings.Join(args, " "))
	if text == "" {
		return errors.New("search: missing search text")
	}
	results, err := a.api.Search(ctx, text)
	if err != nil {
		return err
	}
	if len(results) == 0 {
		fmt.Println(viewstate.NoItemsMessage)
		return nil
	}
	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	defer tw.Flush()
	fmt.Fprintln(tw, "IMDB ID\tTITLE\tYEAR\tTYPE")
	for _, r := range results {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", r.ImdbID, r.Title, viewstate.OrNA(r.Year), r.Type)
	}
	return nil
}

// resolve turns an IMDb id into the search result shape the add commands use.
func (a *app) resolve(ctx context.Context, imdbID string) (models.SearchResult, error) {
	md, err := a.api.Lookup(ctx, imdbID, "")
	if err != nil {
		return models.SearchResult{}, err
	}
	if md == nil {
		return models.SearchResult{}, fmt.Errorf("no title with IMDb id %s", imdbID)
	}
	if !models.MediaType(md.Type).Valid() {
		return models.SearchResult{}, fmt.Errorf("%s is a %s; only movies and series can be added", imdbID, md.Type)
	}
	return models.SearchResult{
		Title:  md.Title,
		Year:   md.Year,
		ImdbID: md.ImdbID,
		Type:   models.MediaType(md.Type),
		Poster: md.Poster,
	}, nil
}

func (a *app) cmdAdd(ctx context.Context, args []string, watched bool) error {
	name := "add"
	if watched {
		name = "add-watched"
	}
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	date := fs.String("date", today(), "date watched, YYYY-MM-DD")
	rating := fs.Float64("rating", 0, "your rating, 0 to 10")
	rest, err := parseFlags(fs, args)
	if err != nil {
		return err
	}
	imdbID, err := oneArg(name, rest)
	if err != nil {
		return err
	}

	r, err := a.resolve(ctx, imdbID)
	if err != nil {
		return err
	}

	var m *models.Media
	if watched {
		m, err = a.list.AddWatched(ctx, r, *date, *rating)
	} else {
		m, err = a.list.AddToWatch(ctx, r)
	}
	if err != nil {
		return err
	}
	fmt.Printf("Added %q to the %s list (id %s)\n", m.Title, models.ListKindFor(m.Watched), m.ID)
	return nil
}

func (a *app) cmdWatch(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("watch", flag.ContinueOnError)
	date := fs.String("date", today(), "date watched, YYYY-MM-DD")
	rating := fs.Float64("rating", 0, "your rating, 0 to 10")
	legacy := fs.Bool("legacy", false, "move by create-then-delete instead of the move endpoint")
	rest, err := parseFlags(fs, args)
	if err != nil {
		return err
	}
	id, err := oneArg("watch", rest)
	if err != nil {
		return err
	}

	var m *models.Media
	if *legacy {
		current, getErr := a.api.Get(ctx, id)
		if getErr != nil {
			return getErr
		}
		m, err = a.list.MoveLegacy(ctx, *current, *date, *rating)
		if err != nil && m != nil {
			fmt.Fprintf(os.Stderr, "warning: %q is now in both lists (new id %s)\n", m.Title, m.ID)
		}
	} else {
		m, err = a.list.MarkWatched(ctx, id, *date, *rating)
	}
	if err != nil {
		return err
	}
	fmt.Printf("Moved %q to the watched list (id %s)\n", m.Title, m.ID)
	return nil
}

func (a *app) cmdUpdate(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("update", flag.ContinueOnError)
	date := fs.String("date", "", "date watched, YYYY-MM-DD")
	rating := fs.String("rating", "", "your rating, 0 to 10")
	tags := fs.String("tags", "", "comma-separated tags, or none to clear")
	rest, err := parseFlags(fs, args)
	if err != nil {
		return err
	}
	id, err := oneArg("update", rest)
	if err != nil {
		return err
	}

	var u models.MediaUpdate
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "date":
			u.DateWatched = date
		case "tags":
			list := parseTags(*tags)
			u.Tags = &list
		}
	})
	if *rating != "" {
		r, err := strconv.ParseFloat(*rating, 64)
		if err != nil {
			return fmt.Errorf("update: invalid rating %q", *rating)
		}
		u.Rating = &r
	}
	if u.Empty() {
		return errors.New("update: nothing to change (use -date, -rating or -tags)")
	}

	current, err := a.api.Get(ctx, id)
	if err != nil {
		return err
	}
	u.Version = &current.Version
	m, err := a.list.Update(ctx, models.ListKindFor(current.Watched), id, u)
	if err != nil {
		return err
	}
	fmt.Printf("Updated %q (version %d)\n", m.Title, m.Version)
	return nil
}

func parseTags(s string) []models.Tag {
	s = strings.TrimSpace(s)
	if s == "" || s == "none" {
		return []models.Tag{}
	}
	var out []models.Tag
	for _, t := range strings.Split(s, ",") {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, models.Tag(t))
		}
	}
	return out
}

func (a *app) cmdDelete(ctx context.Context, args []string) error {
	id, err := oneArg("delete", args)
	if err != nil {
		return err
	}
	current, err := a.api.Get(ctx, id)
	if err != nil {
		return err
	}
	msg, err := a.list.Delete(ctx, models.ListKindFor(current.Watched), id)
	if err != nil {
		return err
	}
	fmt.Println(msg)
	return nil
}

func (a *app) cmdInfo(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("info", flag.ContinueOnError)
	byTitle := fs.Bool("title", false, "look up by exact title instead of IMDb id")
	rest, err := parseFlags(fs, args)
	if err != nil {
		return err
	}
	arg := strings.TrimSpace(strings.Join(rest, " "))
	if arg == "" {
		return errors.New("info: missing IMDb id or title")
	}

	var md *models.ExternalMetadata
	if *byTitle {
		md, err = a.api.Lookup(ctx, "", arg)
	} else {
		md, err = a.api.Lookup(ctx, arg, "")
	}
	if err != nil {
		return err
	}
	if md == nil {
		fmt.Println(viewstate.NoItemsMessage)
		return nil
	}

	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	row := func(label, value string) { fmt.Fprintf(tw, "%s\t%s\n", label, viewstate.OrNA(value)) }
	row("Title", md.Title)
	row("Year", md.Year)
	row("Type", md.Type)
	row("Runtime", md.Runtime)
	row("Genre", md.Genre)
	row("Director", md.Director)
	row("Writer", md.Writer)
	row("Actors", md.Actors)
	row("Language", md.Language)
	row("Country", md.Country)
	if md.TotalSeasons != "" {
		row("Seasons", md.TotalSeasons)
	}
	for _, r := range md.Ratings {
		row(r.Source, ratings.RatioToPercentage(r.Value))
	}
	row("Plot", md.Plot)
	_ = tw.Flush()

	if key := os.Getenv("TMDB_API_KEY"); key != "" && md.ImdbID != "" {
		tc := tmdb.NewClient(key, os.Getenv("TMDB_BASE_URL"), 0)
		found, err := tc.FindByIMDbID(ctx, md.ImdbID, models.MediaType(md.Type))
		if err != nil {
			fmt.Fprintf(os.Stderr, "tmdb: %v\n", err)
			return nil
		}
		if found != nil {
			fmt.Printf("\nTMDB: %s (id %d, %.1f/10)\n%s\n", found.DisplayTitle(), found.ID, found.VoteAverage, viewstate.OrNA(found.Overview))
		}
	}
	return nil
}

func (a *app) cmdRefresh(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("refresh", flag.ContinueOnError)
	all := fs.Bool("all", false, "refresh the ratings of every entry")
	rest, err := parseFlags(fs, args)
	if err != nil {
		return err
	}
	if *all {
		if len(rest) > 0 {
			return errors.New("refresh: -all takes no id")
		}
		if err := a.api.RefreshAllRatings(ctx); err != nil {
			return err
		}
		fmt.Println("Full ratings refresh queued")
		return nil
	}
	id, err := oneArg("refresh", rest)
	if err != nil {
		return err
	}
	if err := a.api.RefreshRatings(ctx, id); err != nil {
		return err
	}
	fmt.Println("Ratings refresh queued")
	return nil
}
