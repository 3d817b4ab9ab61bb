package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/hoanghai1803/newspulse/internal/models"
)

// UpsertChunkSize is the number of articles written per transaction.
const UpsertChunkSize = 100

// urlLookupChunk bounds the number of bound parameters per IN clause.
const urlLookupChunk = 500

// ArticleFilter narrows ListArticles. Zero values mean no constraint.
type ArticleFilter struct {
	Ticker     string
	Since      *time.Time
	ScoredOnly bool
	Limit      int
}

// DefaultArticleLimit applies when ArticleFilter.Limit is not positive.
const DefaultArticleLimit = 100

var articleColumns = []string{
	"a.id", "a.url", "a.title", "a.description", "a.published_at",
	"a.keywords", "a.insights", "a.sentiment_score",
	"a.sentiment_confidence_model", "a.sentiment_confidence_rule",
	"a.sentiment_reasoning", "a.sentiment_insights", "a.created_at",
}

// UpsertArticles writes articles in chunks of UpsertChunkSize, one
// transaction per chunk. An existing row with the same URL is overwritten and
// its ticker list replaced. IDs of written rows are set on the slice.
func (s *Store) UpsertArticles(ctx context.Context, articles []models.Article) error {
	for start := 0; start < len(articles); start += UpsertChunkSize {
		chunk := articles[start:min(start+UpsertChunkSize, len(articles))]
		if err := s.upsertChunk(ctx, chunk); err != nil {
			return fmt.Errorf("upserting articles %d-%d: %w", start, start+len(chunk)-1, err)
		}
	}
	return nil
}

func (s *Store) upsertChunk(ctx context.Context, chunk []models.Article) error {
	return withTx(ctx, s.db, func(tx *sql.Tx) error {
		for i := range chunk {
			if err := upsertArticle(ctx, tx, &chunk[i]); err != nil {
				return err
			}
		}
		return nil
	})
}

// upsertArticle writes one article row and replaces its ticker list.
func upsertArticle(ctx context.Context, tx *sql.Tx, a *models.Article) error {
	row, err := articleRow(a)
	if err != nil {
		return err
	}

	var id int64
	err = tx.QueryRowContext(ctx,
		`INSERT INTO articles
			(url, title, description, published_at, keywords, insights,
			 sentiment_score, sentiment_confidence_model, sentiment_confidence_rule,
			 sentiment_reasoning, sentiment_insights)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(url) DO UPDATE SET
			title                      = excluded.title,
			description                = excluded.description,
			published_at               = excluded.published_at,
			keywords                   = excluded.keywords,
			insights                   = excluded.insights,
			sentiment_score            = excluded.sentiment_score,
			sentiment_confidence_model = excluded.sentiment_confidence_model,
			sentiment_confidence_rule  = excluded.sentiment_confidence_rule,
			sentiment_reasoning        = excluded.sentiment_reasoning,
			sentiment_insights         = excluded.sentiment_insights
		 RETURNING id`,
		a.URL, a.Title, nullableString(a.Description), row.publishedAt,
		row.keywords, row.insights, a.SentimentScore, a.SentimentConfidenceModel,
		a.SentimentConfidenceRule, a.SentimentReasoning, row.scored,
	).Scan(&id)
	if err != nil {
		return fmt.Errorf("upserting article %q: %w", a.URL, err)
	}
	a.ID = id

	if _, err := tx.ExecContext(ctx, `DELETE FROM article_tickers WHERE article_id = ?`, id); err != nil {
		return fmt.Errorf("clearing tickers for %q: %w", a.URL, err)
	}
	for pos, ticker := range a.Tickers {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO article_tickers (article_id, position, ticker) VALUES (?, ?, ?)`,
			id, pos, ticker,
		); err != nil {
			return fmt.Errorf("inserting ticker %q for %q: %w", ticker, a.URL, err)
		}
	}
	return nil
}

type encodedArticle struct {
	publishedAt *string
	keywords    string
	insights    string
	scored      *string
}

func articleRow(a *models.Article) (encodedArticle, error) {
	var row encodedArticle
	if !a.PublishedAt.IsZero() {
		v := formatTime(a.PublishedAt)
		row.publishedAt = &v
	}

	keywords := a.Keywords
	if keywords == nil {
		keywords = []string{}
	}
	kw, err := json.Marshal(keywords)
	if err != nil {
		return row, fmt.Errorf("marshaling keywords: %w", err)
	}
	row.keywords = string(kw)

	insights := a.Insights
	if insights == nil {
		insights = []models.Insight{}
	}
	in, err := json.Marshal(insights)
	if err != nil {
		return row, fmt.Errorf("marshaling insights: %w", err)
	}
	row.insights = string(in)

	if a.SentimentInsights != nil {
		sc, err := json.Marshal(a.SentimentInsights)
		if err != nil {
			return row, fmt.Errorf("marshaling sentiment insights: %w", err)
		}
		v := string(sc)
		row.scored = &v
	}
	return row, nil
}

// ExistingURLs reports which of urls are already stored.
func (s *Store) ExistingURLs(ctx context.Context, urls []string) (map[string]bool, error) {
	existing := make(map[string]bool)
	for start := 0; start < len(urls); start += urlLookupChunk {
		chunk := urls[start:min(start+urlLookupChunk, len(urls))]

		query, args, err := sq.Select("url").From("articles").Where(sq.Eq{"url": chunk}).ToSql()
		if err != nil {
			return nil, fmt.Errorf("building url lookup: %w", err)
		}
		rows, err := s.db.QueryContext(ctx, query, args...)
		if err != nil {
			return nil, fmt.Errorf("querying existing urls: %w", err)
		}
		for rows.Next() {
			var u string
			if err := rows.Scan(&u); err != nil {
				rows.Close()
				return nil, fmt.Errorf("scanning url: %w", err)
			}
			existing[u] = true
		}
		err = rows.Err()
		rows.Close()
		if err != nil {
			return nil, fmt.Errorf("iterating urls: %w", err)
		}
	}
	return existing, nil
}

// DeleteArticlesOlderThan removes articles stored before cutoff and returns
// how many were deleted.
func (s *Store) DeleteArticlesOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM articles WHERE created_at < ?`, formatTime(cutoff))
	if err != nil {
		return 0, fmt.Errorf("deleting old articles: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("counting deleted articles: %w", err)
	}
	return n, nil
}

// ListArticles returns stored articles newest first.
func (s *Store) ListArticles(ctx context.Context, f ArticleFilter) ([]models.Article, error) {
	limit := f.Limit
	if limit <= 0 {
		limit = DefaultArticleLimit
	}

	q := sq.Select(articleColumns...).
		From("articles a").
		OrderBy("a.published_at DESC", "a.id DESC").
		Limit(uint64(limit))
	if f.Ticker != "" {
		q = q.Where(sq.Expr(
			"EXISTS (SELECT 1 FROM article_tickers t WHERE t.article_id = a.id AND t.ticker = ?)", f.Ticker))
	}
	if f.Since != nil {
		q = q.Where(sq.GtOrEq{"a.published_at": formatTime(*f.Since)})
	}
	if f.ScoredOnly {
		q = q.Where(sq.NotEq{"a.sentiment_score": nil})
	}

	query, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("building article query: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying articles: %w", err)
	}
	defer rows.Close()

	articles := []models.Article{}
	for rows.Next() {
		a, err := scanArticle(rows)
		if err != nil {
			return nil, err
		}
		articles = append(articles, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating article rows: %w", err)
	}
	rows.Close()

	if err := s.loadTickers(ctx, articles); err != nil {
		return nil, err
	}
	return articles, nil
}

func scanArticle(rows *sql.Rows) (models.Article, error) {
	var (
		a                   models.Article
		description         sql.NullString
		publishedAt         sql.NullString
		keywords, insights  string
		score               sql.NullInt64
		confModel, confRule sql.NullFloat64
		reasoning           sql.NullString
		scored              sql.NullString
		createdAt           string
	)
	if err := rows.Scan(
		&a.ID, &a.URL, &a.Title, &description, &publishedAt,
		&keywords, &insights, &score, &confModel, &confRule,
		&reasoning, &scored, &createdAt,
	); err != nil {
		return a, fmt.Errorf("scanning article row: %w", err)
	}

	a.Description = description.String
	if publishedAt.Valid {
		a.PublishedAt = parseTime(publishedAt.String)
	}
	a.CreatedAt = parseTime(createdAt)

	if err := json.Unmarshal([]byte(keywords), &a.Keywords); err != nil {
		return a, fmt.Errorf("unmarshaling keywords of %q: %w", a.URL, err)
	}
	if err := json.Unmarshal([]byte(insights), &a.Insights); err != nil {
		return a, fmt.Errorf("unmarshaling insights of %q: %w", a.URL, err)
	}

	if score.Valid {
		v := int(score.Int64)
		a.SentimentScore = &v
	}
	if confModel.Valid {
		a.SentimentConfidenceModel = &confModel.Float64
	}
	if confRule.Valid {
		a.SentimentConfidenceRule = &confRule.Float64
	}
	if reasoning.Valid {
		a.SentimentReasoning = &reasoning.String
	}
	if scored.Valid {
		if err := json.Unmarshal([]byte(scored.String), &a.SentimentInsights); err != nil {
			return a, fmt.Errorf("unmarshaling sentiment insights of %q: %w", a.URL, err)
		}
	}
	return a, nil
}

// loadTickers fills Tickers for every article in one query.
func (s *Store) loadTickers(ctx context.Context, articles []models.Article) error {
	if len(articles) == 0 {
		return nil
	}

	ids := make([]int64, len(articles))
	byID := make(map[int64]*models.Article, len(articles))
	for i := range articles {
		ids[i] = articles[i].ID
		articles[i].Tickers = []string{}
		byID[articles[i].ID] = &articles[i]
	}

	query, args, err := sq.Select("article_id", "ticker").
		From("article_tickers").
		Where(sq.Eq{"article_id": ids}).
		OrderBy("article_id", "position").
		ToSql()
	if err != nil {
		return fmt.Errorf("building ticker query: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("querying tickers: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			id     int64
			ticker string
		)
		if err := rows.Scan(&id, &ticker); err != nil {
			return fmt.Errorf("scanning ticker row: %w", err)
		}
		if a, ok := byID[id]; ok {
			a.Tickers = append(a.Tickers, ticker)
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterating ticker rows: %w", err)
	}
	return nil
}
