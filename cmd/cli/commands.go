package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/gofrs/uuid/v5"
	"go.uber.org/zap"

	"github.com/and161185/snapshare/internal/api"
	"github.com/and161185/snapshare/internal/model"
	"github.com/and161185/snapshare/internal/offline"
	"github.com/and161185/snapshare/internal/pagecache"
	"github.com/and161185/snapshare/internal/remote"
)

type command struct {
	usage string
	auth  bool
	run   func(ctx context.Context, s *session, args []string, out io.Writer) error
}

var commands = map[string]command{
	"register":        {"-u <username> -p <password>", false, cmdRegister},
	"login":           {"-u <username> -p <password>           (saves token)", false, cmdLogin},
	"albums":          {"                                      (local albums)", true, cmdAlbums},
	"album-new":       {"-name <name> [-group <id>] [-publish]", true, cmdAlbumNew},
	"album-rm":        {"-id <album> [-remote]", true, cmdAlbumRemove},
	"album-public":    {"-id <album> [-off] [-remote]", true, cmdAlbumPublic},
	"photo-add":       {"-album <id> -uri <uri> [-lat f -lng f -place s]", true, cmdPhotoAdd},
	"photos-rm":       {"<photo-id>...", true, cmdPhotosRemove},
	"photos-mv":       {"-to <album> <photo-id>...", true, cmdPhotosMove},
	"cover":           {"-album <id> -uri <uri>", true, cmdCover},
	"like":            {"-album <id> | -photo <id> [-remote]", true, cmdLike},
	"favorite":        {"-album <id>", true, cmdFavorite},
	"smart":           {"                                      (derived albums)", true, cmdSmart},
	"comment":         {"-album <id> | -photo <id> -text <text> [-remote]", true, cmdComment},
	"comments":        {"-album <id> | -photo <id>", true, cmdComments},
	"group-new":       {"-name <name> [-desc <text>]", true, cmdGroupNew},
	"join":            {"-code <invite code>", true, cmdJoin},
	"export":          {"-album <id>", true, cmdExport},
	"sync":            {"                                      (push full snapshot)", true, cmdSync},
	"notifications":   {"[-read <id>] [-clear]", true, cmdNotifications},
	"remote-albums":   {"[-pages n]", true, cmdRemoteAlbums},
	"remote-photos":   {"-album <id> [-pages n]", true, cmdRemotePhotos},
	"remote-groups":   {"[-pages n]", true, cmdRemoteGroups},
	"remote-comments": {"-album <id> | -photo <id> [-pages n]", true, cmdRemoteComments},
	"remote-likes":    {"-album <id> | -photo <id> [-pages n]", true, cmdRemoteLikes},
	"watch":           {"-album <id> [-likes] | -photo <id>     (refetch on change)", true, cmdWatch},
}

func newFlagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	return fs
}

func parseID(name, v string) (uuid.UUID, error) {
	if strings.TrimSpace(v) == "" {
		return uuid.Nil, fmt.Errorf("need -%s", name)
	}
	id, err := uuid.FromString(strings.TrimSpace(v))
	if err != nil {
		return uuid.Nil, fmt.Errorf("bad -%s: %w", name, err)
	}
	return id, nil
}

func parseIDs(args []string) ([]uuid.UUID, error) {
	if len(args) == 0 {
		return nil, errors.New("need at least one id")
	}
	ids := make([]uuid.UUID, 0, len(args))
	for _, a := range args {
		id, err := uuid.FromString(a)
		if err != nil {
			return nil, fmt.Errorf("bad id %q: %w", a, err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// parseTarget reads the mutually exclusive -album/-photo pair.
func parseTarget(album, photo string) (model.CommentTarget, error) {
	switch {
	case album != "" && photo != "":
		return model.CommentTarget{}, errors.New("use either -album or -photo")
	case album != "":
		id, err := parseID("album", album)
		return model.OnAlbum(id), err
	case photo != "":
		id, err := parseID("photo", photo)
		return model.OnPhoto(id), err
	}
	return model.CommentTarget{}, errors.New("need -album or -photo")
}

func printJSON(out io.Writer, v any) {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}

// ---- account ----

func cmdRegister(ctx context.Context, s *session, args []string, out io.Writer) error {
	fs := newFlagSet("register")
	u := fs.String("u", "", "username")
	p := fs.String("p", "", "password")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *u == "" || *p == "" {
		return errors.New("need -u and -p")
	}
	resp, err := s.client.Register(ctx, &api.RegisterRequest{Username: *u, Password: *p})
	if err != nil {
		return err
	}
	fmt.Fprintln(out, resp.UserID)
	return nil
}

func cmdLogin(ctx context.Context, s *session, args []string, out io.Writer) error {
	fs := newFlagSet("login")
	u := fs.String("u", "", "username")
	p := fs.String("p", "", "password")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *u == "" || *p == "" {
		return errors.New("need -u and -p")
	}
	resp, err := s.client.Login(ctx, &api.LoginRequest{Username: *u, Password: *p})
	if err != nil {
		return err
	}
	exp := resp.ExpiresAt
	if exp.IsZero() {
		exp = tokenExpiry(resp.AccessToken, time.Now().Add(15*time.Minute))
	}
	if err := saveToken(s.cfg.TokenPath(), tokenFile{AccessToken: resp.AccessToken, ExpiresAt: exp, UserID: resp.UserID}); err != nil {
		return err
	}
	fmt.Fprintln(out, "ok")
	return nil
}

// ---- local albums and photos ----

func cmdAlbums(_ context.Context, s *session, _ []string, out io.Writer) error {
	type row struct {
		ID       uuid.UUID `json:"id"`
		Name     string    `json:"name"`
		Photos   int       `json:"photos"`
		Cover    string    `json:"cover,omitempty"`
		Public   bool      `json:"public"`
		Favorite bool      `json:"favorite"`
	}
	rows := []row{}
	for _, a := range s.store.Albums() {
		rows = append(rows, row{a.ID, a.Name, len(a.Photos), a.CoverImage, a.IsPublic, s.store.IsFavorite(a.ID)})
	}
	printJSON(out, rows)
	return nil
}

func cmdAlbumNew(ctx context.Context, s *session, args []string, out io.Writer) error {
	fs := newFlagSet("album-new")
	name := fs.String("name", "", "album name")
	group := fs.String("group", "", "group id")
	publish := fs.Bool("publish", false, "also create the album on the server")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if strings.TrimSpace(*name) == "" {
		return errors.New("need -name")
	}
	var groupID *uuid.UUID
	if *group != "" {
		id, err := parseID("group", *group)
		if err != nil {
			return err
		}
		groupID = &id
	}
	a := s.store.CreateAlbum(ctx, *name, groupID)
	if *publish {
		p, err := albumPager(s)
		if err != nil {
			return err
		}
		if _, err := p.Create(ctx, a); err != nil {
			return fmt.Errorf("album %s created locally, publish failed: %w", a.ID, err)
		}
	}
	fmt.Fprintln(out, a.ID)
	return nil
}

func cmdAlbumRemove(ctx context.Context, s *session, args []string, out io.Writer) error {
	fs := newFlagSet("album-rm")
	id := fs.String("id", "", "album id")
	mirror := fs.Bool("remote", false, "also delete the server row")
	if err := fs.Parse(args); err != nil {
		return err
	}
	albumID, err := parseID("id", *id)
	if err != nil {
		return err
	}
	if err := s.store.DeleteAlbum(ctx, albumID); err != nil {
		return err
	}
	if *mirror {
		p, err := albumPager(s)
		if err != nil {
			return err
		}
		if err := p.Delete(ctx, albumID); err != nil {
			return fmt.Errorf("album %s deleted locally, remote delete failed: %w", albumID, err)
		}
	}
	fmt.Fprintln(out, "ok")
	return nil
}

func cmdAlbumPublic(ctx context.Context, s *session, args []string, out io.Writer) error {
	fs := newFlagSet("album-public")
	id := fs.String("id", "", "album id")
	off := fs.Bool("off", false, "make the album private")
	mirror := fs.Bool("remote", false, "also patch the server row")
	if err := fs.Parse(args); err != nil {
		return err
	}
	albumID, err := parseID("id", *id)
	if err != nil {
		return err
	}
	public := !*off
	if err := s.store.SetAlbumPublic(ctx, albumID, public); err != nil {
		return err
	}
	if *mirror {
		p, err := albumPager(s)
		if err != nil {
			return err
		}
		if _, err := p.Update(ctx, albumID, model.Patch{"isPublic": public}); err != nil {
			return fmt.Errorf("album %s updated locally, remote update failed: %w", albumID, err)
		}
	}
	fmt.Fprintf(out, "public=%t\n", public)
	return nil
}

func cmdPhotoAdd(ctx context.Context, s *session, args []string, out io.Writer) error {
	fs := newFlagSet("photo-add")
	album := fs.String("album", "", "album id")
	uri := fs.String("uri", "", "photo uri")
	lat := fs.Float64("lat", 0, "latitude")
	lng := fs.Float64("lng", 0, "longitude")
	place := fs.String("place", "", "location name")
	if err := fs.Parse(args); err != nil {
		return err
	}
	albumID, err := parseID("album", *album)
	if err != nil {
		return err
	}
	meta := &model.PhotoMetadata{Timestamp: time.Now().UTC()}
	if *lat != 0 || *lng != 0 || *place != "" {
		meta.Location = &model.Location{Lat: *lat, Lng: *lng, Name: *place}
	}
	p, err := s.store.AddPhotoToAlbum(ctx, albumID, *uri, meta)
	if err != nil {
		return err
	}
	fmt.Fprintln(out, p.ID)
	return nil
}

func cmdPhotosRemove(ctx context.Context, s *session, args []string, out io.Writer) error {
	ids, err := parseIDs(args)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "deleted %d\n", s.store.BatchDeletePhotos(ctx, ids))
	return nil
}

func cmdPhotosMove(ctx context.Context, s *session, args []string, out io.Writer) error {
	fs := newFlagSet("photos-mv")
	to := fs.String("to", "", "target album id")
	if err := fs.Parse(args); err != nil {
		return err
	}
	target, err := parseID("to", *to)
	if err != nil {
		return err
	}
	ids, err := parseIDs(fs.Args())
	if err != nil {
		return err
	}
	n, err := s.store.BatchMovePhotos(ctx, ids, target)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "moved %d\n", n)
	return nil
}

func cmdCover(ctx context.Context, s *session, args []string, out io.Writer) error {
	fs := newFlagSet("cover")
	album := fs.String("album", "", "album id")
	uri := fs.String("uri", "", "cover uri")
	if err := fs.Parse(args); err != nil {
		return err
	}
	albumID, err := parseID("album", *album)
	if err != nil {
		return err
	}
	if err := s.store.UpdateAlbumCover(ctx, albumID, *uri); err != nil {
		return err
	}
	fmt.Fprintln(out, "ok")
	return nil
}

func cmdLike(ctx context.Context, s *session, args []string, out io.Writer) error {
	fs := newFlagSet("like")
	album := fs.String("album", "", "album id")
	photo := fs.String("photo", "", "photo id")
	mirror := fs.Bool("remote", false, "also mirror the like row on the server")
	if err := fs.Parse(args); err != nil {
		return err
	}
	target, err := parseTarget(*album, *photo)
	if err != nil {
		return err
	}
	var liked bool
	if target.IsAlbum() {
		liked, err = s.store.ToggleAlbumLike(ctx, target.ID())
	} else {
		liked, err = s.store.TogglePhotoLike(ctx, target.ID())
	}
	if err != nil {
		return err
	}
	if *mirror {
		if err := mirrorLike(ctx, s, target, liked); err != nil {
			return fmt.Errorf("like toggled locally, remote update failed: %w", err)
		}
	}
	fmt.Fprintf(out, "liked=%t\n", liked)
	return nil
}

// mirrorLike inserts the user's like row or deletes the existing one.
func mirrorLike(ctx context.Context, s *session, target model.CommentTarget, liked bool) error {
	p, err := likePager(s, target)
	if err != nil {
		return err
	}
	if liked {
		photoID, albumID := target.Refs()
		_, err := p.Create(ctx, model.Like{
			ID: model.NewID(), UserID: s.user, PhotoID: photoID, AlbumID: albumID, CreatedAt: time.Now().UTC(),
		})
		return err
	}
	id, err := findLike(ctx, p, s.user)
	if err != nil || id == uuid.Nil {
		return err
	}
	return p.Delete(ctx, id)
}

// findLike pages through the target's likes until it meets one by user.
func findLike(ctx context.Context, p *pagecache.Pager[model.Like], user uuid.UUID) (uuid.UUID, error) {
	if err := p.Fetch(ctx, false); err != nil {
		return uuid.Nil, err
	}
	for {
		v := p.View()
		for _, l := range v.Items {
			if l.UserID == user {
				return l.ID, nil
			}
		}
		if !v.HasMore {
			return uuid.Nil, nil
		}
		if err := p.LoadMore(ctx); err != nil {
			return uuid.Nil, err
		}
	}
}

func cmdFavorite(ctx context.Context, s *session, args []string, out io.Writer) error {
	fs := newFlagSet("favorite")
	album := fs.String("album", "", "album id")
	if err := fs.Parse(args); err != nil {
		return err
	}
	albumID, err := parseID("album", *album)
	if err != nil {
		return err
	}
	fav, err := s.store.ToggleFavoriteAlbum(ctx, albumID)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "favorite=%t\n", fav)
	return nil
}

func cmdSmart(_ context.Context, s *session, _ []string, out io.Writer) error {
	smart := s.store.GetSmartAlbums()
	names := func(in []model.Album) []string {
		out := make([]string, 0, len(in))
		for _, a := range in {
			out = append(out, fmt.Sprintf("%s (%d)", a.Name, len(a.Photos)))
		}
		return out
	}
	printJSON(out, map[string][]string{
		"byDate":     names(smart.ByDate),
		"byLocation": names(smart.ByLocation),
		"favorites":  names(smart.Favorites),
	})
	return nil
}

// ---- comments and groups ----

func cmdComment(ctx context.Context, s *session, args []string, out io.Writer) error {
	fs := newFlagSet("comment")
	album := fs.String("album", "", "album id")
	photo := fs.String("photo", "", "photo id")
	text := fs.String("text", "", "comment text")
	mirror := fs.Bool("remote", false, "also post the comment to the server")
	if err := fs.Parse(args); err != nil {
		return err
	}
	target, err := parseTarget(*album, *photo)
	if err != nil {
		return err
	}
	c, err := s.store.AddComment(ctx, target, *text)
	if err != nil {
		return err
	}
	if *mirror {
		p, err := commentPager(s, target)
		if err != nil {
			return err
		}
		if _, err := p.Create(ctx, c); err != nil {
			return fmt.Errorf("comment %s saved locally, remote post failed: %w", c.ID, err)
		}
	}
	fmt.Fprintln(out, c.ID)
	return nil
}

func cmdComments(_ context.Context, s *session, args []string, out io.Writer) error {
	fs := newFlagSet("comments")
	album := fs.String("album", "", "album id")
	photo := fs.String("photo", "", "photo id")
	if err := fs.Parse(args); err != nil {
		return err
	}
	target, err := parseTarget(*album, *photo)
	if err != nil {
		return err
	}
	printJSON(out, s.store.Comments(target))
	return nil
}

func cmdGroupNew(ctx context.Context, s *session, args []string, out io.Writer) error {
	fs := newFlagSet("group-new")
	name := fs.String("name", "", "group name")
	desc := fs.String("desc", "", "description")
	if err := fs.Parse(args); err != nil {
		return err
	}
	g, err := s.store.CreateGroup(ctx, *name, *desc)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "%s invite=%s\n", g.ID, g.InviteCode)
	return nil
}

func cmdJoin(ctx context.Context, s *session, args []string, out io.Writer) error {
	fs := newFlagSet("join")
	code := fs.String("code", "", "invite code")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if !s.store.JoinGroupByCode(ctx, *code) {
		return errors.New("could not join group with that code")
	}
	fmt.Fprintln(out, "joined")
	return nil
}

// ---- remote actions ----

func cmdExport(ctx context.Context, s *session, args []string, out io.Writer) error {
	fs := newFlagSet("export")
	album := fs.String("album", "", "album id")
	if err := fs.Parse(args); err != nil {
		return err
	}
	albumID, err := parseID("album", *album)
	if err != nil {
		return err
	}
	link, err := s.store.ExportAlbum(ctx, albumID)
	if err != nil {
		return err
	}
	fmt.Fprintln(out, link)
	return nil
}

func cmdSync(ctx context.Context, s *session, _ []string, out io.Writer) error {
	s.store.SyncData(ctx)
	online, last := s.store.SyncStatus()
	if !online {
		return errors.New("sync failed; local data kept")
	}
	fmt.Fprintf(out, "synced at %s\n", last.UTC().Format(time.RFC3339))
	return nil
}

func cmdNotifications(_ context.Context, s *session, args []string, out io.Writer) error {
	fs := newFlagSet("notifications")
	read := fs.String("read", "", "mark notification read")
	clearAll := fs.Bool("clear", false, "drop all notifications")
	if err := fs.Parse(args); err != nil {
		return err
	}
	switch {
	case *clearAll:
		s.store.ClearNotifications()
	case *read != "":
		id, err := parseID("read", *read)
		if err != nil {
			return err
		}
		s.store.MarkNotificationRead(id)
	}
	fmt.Fprintf(out, "unread=%d\n", s.store.UnreadCount())
	printJSON(out, s.store.Notifications())
	return nil
}

// ---- paged remote reads ----

func pagerOptions(s *session, offlineKey string) []pagecache.Option {
	opts := []pagecache.Option{
		pagecache.WithLimit(s.cfg.PageSize),
		pagecache.WithCacheSize(s.cfg.CacheSize),
		pagecache.WithTimeout(s.cfg.RequestTimeout),
		pagecache.WithLogger(s.log),
	}
	if s.offline != nil && offlineKey != "" {
		opts = append(opts, pagecache.WithOffline(s.offline, offlineKey))
	}
	return opts
}

// fetchPages loads the first page and up to pages-1 more, then prints the view.
func fetchPages[T pagecache.Entity](ctx context.Context, p *pagecache.Pager[T], pages int, out io.Writer) error {
	if err := p.Fetch(ctx, false); err != nil {
		if v := p.View(); v.Stale {
			fmt.Fprintln(out, "offline: showing last known data")
			printJSON(out, v.Items)
			return nil
		}
		return err
	}
	for i := 1; i < pages && p.View().HasMore; i++ {
		if err := p.LoadMore(ctx); err != nil {
			return err
		}
	}
	v := p.View()
	printJSON(out, v.Items)
	if v.HasMore {
		fmt.Fprintln(out, "(more available)")
	}
	return nil
}

func pagesFlag(fs *flag.FlagSet) *int { return fs.Int("pages", 1, "number of pages to load") }

func cmdRemoteAlbums(ctx context.Context, s *session, args []string, out io.Writer) error {
	fs := newFlagSet("remote-albums")
	pages := pagesFlag(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	p, err := albumPager(s)
	if err != nil {
		return err
	}
	return fetchPages(ctx, p, *pages, out)
}

func albumPager(s *session) (*pagecache.Pager[model.Album], error) {
	return pagecache.New[model.Album](remote.NewTable[model.Album](s.client, model.TableAlbums),
		s.user, model.TableAlbums, model.Scope{Kind: model.ScopeOwner}, pagerOptions(s, offline.KeyAlbums)...)
}

func cmdRemoteGroups(ctx context.Context, s *session, args []string, out io.Writer) error {
	fs := newFlagSet("remote-groups")
	pages := pagesFlag(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	p, err := pagecache.New[model.Group](remote.NewTable[model.Group](s.client, model.TableGroups),
		s.user, model.TableGroups, model.Scope{Kind: model.ScopeMember}, pagerOptions(s, offline.KeyGroups)...)
	if err != nil {
		return err
	}
	return fetchPages(ctx, p, *pages, out)
}

func photoPager(s *session, albumID uuid.UUID) (*pagecache.Pager[model.Photo], error) {
	return pagecache.New[model.Photo](remote.NewTable[model.Photo](s.client, model.TablePhotos),
		s.user, model.TablePhotos, model.Scope{Kind: model.ScopeParent, ID: albumID},
		pagerOptions(s, offline.KeyPhotos+"_"+albumID.String())...)
}

func cmdRemotePhotos(ctx context.Context, s *session, args []string, out io.Writer) error {
	fs := newFlagSet("remote-photos")
	album := fs.String("album", "", "album id")
	pages := pagesFlag(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	albumID, err := parseID("album", *album)
	if err != nil {
		return err
	}
	p, err := photoPager(s, albumID)
	if err != nil {
		return err
	}
	return fetchPages(ctx, p, *pages, out)
}

// commentPager and likePager keep no offline snapshot.
func commentPager(s *session, target model.CommentTarget) (*pagecache.Pager[model.Comment], error) {
	return pagecache.New[model.Comment](remote.NewTable[model.Comment](s.client, model.TableComments),
		s.user, model.TableComments, model.Scope{Kind: model.ScopeParent, ID: target.ID()}, pagerOptions(s, "")...)
}

func likePager(s *session, target model.CommentTarget) (*pagecache.Pager[model.Like], error) {
	return pagecache.New[model.Like](remote.NewTable[model.Like](s.client, model.TableLikes),
		s.user, model.TableLikes, model.Scope{Kind: model.ScopeParent, ID: target.ID()}, pagerOptions(s, "")...)
}

func targetFlags(fs *flag.FlagSet) (album, photo *string) {
	return fs.String("album", "", "album id"), fs.String("photo", "", "photo id")
}

func cmdRemoteComments(ctx context.Context, s *session, args []string, out io.Writer) error {
	fs := newFlagSet("remote-comments")
	album, photo := targetFlags(fs)
	pages := pagesFlag(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	target, err := parseTarget(*album, *photo)
	if err != nil {
		return err
	}
	p, err := commentPager(s, target)
	if err != nil {
		return err
	}
	return fetchPages(ctx, p, *pages, out)
}

func cmdRemoteLikes(ctx context.Context, s *session, args []string, out io.Writer) error {
	fs := newFlagSet("remote-likes")
	album, photo := targetFlags(fs)
	pages := pagesFlag(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	target, err := parseTarget(*album, *photo)
	if err != nil {
		return err
	}
	p, err := likePager(s, target)
	if err != nil {
		return err
	}
	return fetchPages(ctx, p, *pages, out)
}

// cmdWatch keeps the first page of an album's photos, or of a target's likes, fresh until interrupted.
func cmdWatch(ctx context.Context, s *session, args []string, out io.Writer) error {
	fs := newFlagSet("watch")
	album, photo := targetFlags(fs)
	likes := fs.Bool("likes", false, "watch the album's likes instead of its photos")
	if err := fs.Parse(args); err != nil {
		return err
	}
	target, err := parseTarget(*album, *photo)
	if err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	if target.IsAlbum() && !*likes {
		p, err := photoPager(s, target.ID())
		if err != nil {
			return err
		}
		return watchPager(ctx, s, p, "photos", out)
	}
	p, err := likePager(s, target)
	if err != nil {
		return err
	}
	return watchPager(ctx, s, p, "likes", out)
}

// watchPager reports the item count on change until the subscription ends.
// The printer has finished writing to out when it returns.
func watchPager[T pagecache.Entity](ctx context.Context, s *session, p *pagecache.Pager[T], noun string, out io.Writer) error {
	if err := p.Fetch(ctx, false); err != nil {
		s.log.Warn("initial fetch failed", zap.Error(err))
	}
	last := len(p.View().Items)
	fmt.Fprintf(out, "%d %s; watching (Ctrl-C to stop)\n", last, noun)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		report := func() {
			if n := len(p.View().Items); n != last {
				last = n
				fmt.Fprintf(out, "%s %d %s\n", time.Now().Format(time.TimeOnly), n, noun)
			}
		}
		t := time.NewTicker(500 * time.Millisecond)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				report()
				return
			case <-t.C:
				report()
			}
		}
	}()

	err := p.Watch(ctx, remote.NewWatcher(s.client, s.log))
	cancel()
	wg.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func commandNames() []string {
	names := make([]string, 0, len(commands))
	for n := range commands {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
