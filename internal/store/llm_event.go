package store

import (
	"context"
	"database/sql"
	"fmt"

	entsql "entgo.io/ent/dialect/sql"
)

const tableLLMEvents = "llm_request_events"

var llmEventColumns = []string{
	"id", "created_at", "provider", "model", "purpose", "input_tokens", "output_tokens",
	"latency_ms", "success", "error_message", "request_body", "response_body",
}

func (c *conn) AppendLLMRequest(ctx context.Context, data LLMRequestEventData) error {
	query, args := c.builder().Insert(tableLLMEvents).
		Columns(llmEventColumns[1:]...).
		Values(
			millis(now()),
			data.Provider,
			data.Model,
			data.Purpose,
			data.InputTokens,
			data.OutputTokens,
			data.LatencyMs,
			data.Success,
			data.ErrorMessage,
			data.RequestBody,
			data.ResponseBody,
		).
		Query()
	if _, err := c.exec(ctx, query, args); err != nil {
		return unavailable("save llm request event", err)
	}
	return nil
}

func (c *conn) QueryLLMEvents(ctx context.Context, opts QueryOpts) ([]LLMRequestEvent, error) {
	b := c.builder()
	sel := b.Select(llmEventColumns...).From(b.Table(tableLLMEvents))

	var preds []*entsql.Predicate
	if opts.Before > 0 {
		preds = append(preds, entsql.LT("id", opts.Before))
	}
	if !opts.From.IsZero() {
		preds = append(preds, entsql.GTE("created_at", millis(opts.From)))
	}
	if !opts.To.IsZero() {
		preds = append(preds, entsql.LTE("created_at", millis(opts.To)))
	}
	if opts.Purpose != "" {
		preds = append(preds, entsql.EQ("purpose", opts.Purpose))
	}
	if len(preds) > 0 {
		sel.Where(entsql.And(preds...))
	}
	sel.OrderBy(entsql.Desc("id"))
	if opts.Limit > 0 {
		sel.Limit(opts.Limit)
	}
	query, args := sel.Query()

	rows, err := c.query(ctx, query, args)
	if err != nil {
		return nil, unavailable("query llm events", err)
	}
	defer rows.Close()

	var out []LLMRequestEvent
	for rows.Next() {
		e, err := scanLLMEvent(rows)
		if err != nil {
			return nil, unavailable("scan llm event", err)
		}
		out = append(out, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("query llm events", err)
	}
	return out, nil
}

func (c *conn) GetLLMEvent(ctx context.Context, id int64) (*LLMRequestEvent, error) {
	b := c.builder()
	query, args := b.Select(llmEventColumns...).
		From(b.Table(tableLLMEvents)).
		Where(entsql.EQ("id", id)).
		Query()

	rows, err := c.query(ctx, query, args)
	if err != nil {
		return nil, unavailable("get llm event", err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, unavailable("get llm event", err)
		}
		return nil, nil
	}
	e, err := scanLLMEvent(rows)
	if err != nil {
		return nil, unavailable("scan llm event", err)
	}
	return e, nil
}

func scanLLMEvent(rows *entsql.Rows) (*LLMRequestEvent, error) {
	var (
		e         LLMRequestEvent
		createdAt int64
		errMsg    sql.NullString
		reqBody   sql.NullString
		respBody  sql.NullString
	)
	if err := rows.Scan(&e.ID, &createdAt, &e.Provider, &e.Model, &e.Purpose,
		&e.InputTokens, &e.OutputTokens, &e.LatencyMs, &e.Success,
		&errMsg, &reqBody, &respBody); err != nil {
		return nil, err
	}
	e.CreatedAt = fromMillis(createdAt)
	e.ErrorMessage = errMsg.String
	e.RequestBody = reqBody.String
	e.ResponseBody = respBody.String
	return &e, nil
}

func (c *conn) LLMUsageByPurpose(ctx context.Context) ([]LLMUsage, error) {
	return c.llmUsage(ctx, "purpose")
}

func (c *conn) LLMUsageByModel(ctx context.Context) ([]LLMUsage, error) {
	return c.llmUsage(ctx, "model")
}

func (c *conn) llmUsage(ctx context.Context, key string) ([]LLMUsage, error) {
	b := c.builder()
	t := b.Table(tableLLMEvents)
	query, args := b.Select(
		t.C(key),
		entsql.As(entsql.Count("*"), "calls"),
		entsql.As("SUM(CASE WHEN success THEN 0 ELSE 1 END)", "failures"),
		entsql.As(entsql.Sum(t.C("input_tokens")), "input_tokens"),
		entsql.As(entsql.Sum(t.C("output_tokens")), "output_tokens"),
		entsql.As(entsql.Avg(t.C("latency_ms")), "avg_latency_ms"),
	).
		From(t).
		GroupBy(t.C(key)).
		OrderBy(entsql.Desc("input_tokens")).
		Query()

	rows, err := c.query(ctx, query, args)
	if err != nil {
		return nil, unavailable(fmt.Sprintf("llm usage by %s", key), err)
	}
	defer rows.Close()

	var out []LLMUsage
	for rows.Next() {
		var (
			u       LLMUsage
			latency sql.NullFloat64
		)
		if err := rows.Scan(&u.Key, &u.Calls, &u.Failures, &u.InputTokens, &u.OutputTokens, &latency); err != nil {
			return nil, unavailable("scan llm usage", err)
		}
		u.AvgLatencyMs = int64(latency.Float64)
		out = append(out, u)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("llm usage", err)
	}
	return out, nil
}
