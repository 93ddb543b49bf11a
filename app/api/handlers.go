package api

import (
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/lysyi3m/newswatch/app/database"
	"github.com/lysyi3m/newswatch/app/feed"
	"github.com/lysyi3m/newswatch/app/query"
	"github.com/lysyi3m/newswatch/app/stats"
	"github.com/lysyi3m/newswatch/app/tasks"
)

const referenceLayout = "2006-01-02"

func NewHandler(configCache *feed.ConfigCache, feedRepo database.FeedRepository,
	topicRepo database.TopicRepository, articleRepo database.ArticleRepository,
	querier ArticleQuerier, scheduler tasks.TaskSchedulerInterface) *Handler {
	return &Handler{
		feedRepo:    feedRepo,
		topicRepo:   topicRepo,
		articleRepo: articleRepo,
		querier:     querier,
		configCache: configCache,
		scheduler:   scheduler,
	}
}

func (h *Handler) GetHealth(c *gin.Context) {
	ctx := c.Request.Context()
	health := map[string]interface{}{
		"timestamp": time.Now().In(time.Local).Format(time.RFC3339),
	}

	if feedCount, err := h.feedRepo.GetFeedCount(ctx); err == nil {
		health["feeds"] = feedCount
	}
	if articleCount, err := h.articleRepo.GetArticleCount(ctx); err == nil {
		health["articles"] = articleCount
	}
	if h.configCache != nil {
		health["loaded_configurations"] = h.configCache.GetConfigCount()
	}

	c.JSON(http.StatusOK, health)
}

func (h *Handler) ListTopics(c *gin.Context) {
	topics, err := h.topicRepo.GetAllTopics(c.Request.Context())
	if err != nil {
		respondError(c, "list_topics", err)
		return
	}

	views := make([]TopicView, 0, len(topics))
	for _, t := range topics {
		views = append(views, newTopicView(t))
	}

	c.JSON(http.StatusOK, gin.H{
		"topics": views,
		"total":  len(views),
	})
}

func (h *Handler) CreateTopic(c *gin.Context) {
	var req createTopicRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	topic, err := h.topicRepo.CreateTopic(c.Request.Context(), req.Name)
	if err != nil {
		respondError(c, "create_topic", err)
		return
	}

	slog.Info("Topic created", "topic", topic.Name, "id", topic.ID)
	c.JSON(http.StatusCreated, newTopicView(*topic))
}

func (h *Handler) ListFeeds(c *gin.Context) {
	feeds, err := h.feedRepo.GetAllFeeds(c.Request.Context())
	if err != nil {
		respondError(c, "list_feeds", err)
		return
	}

	views := make([]FeedView, 0, len(feeds))
	for _, f := range feeds {
		views = append(views, newFeedView(f))
	}

	c.JSON(http.StatusOK, gin.H{
		"feeds": views,
		"total": len(views),
	})
}

// CreateFeed registers a feed and queues its first download.
func (h *Handler) CreateFeed(c *gin.Context) {
	var req createFeedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if u, err := url.Parse(req.URL); err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		c.JSON(http.StatusBadRequest, gin.H{"error": "url must use http or https scheme"})
		return
	}

	f, err := h.feedRepo.CreateFeed(c.Request.Context(), req.Name, req.URL, req.MonthlyVisitors)
	if err != nil {
		respondError(c, "create_feed", err)
		return
	}

	if err := h.scheduler.EnqueueDownload(*f); err != nil {
		slog.Warn("Failed to enqueue DownloadFeedTask", "feed", f.Name, "error", err)
	}

	slog.Info("Feed created", "feed", f.Name, "id", f.ID)
	c.JSON(http.StatusCreated, newFeedView(*f))
}

func (h *Handler) GetTopicStats(c *gin.Context) {
	ctx := c.Request.Context()
	topicID := c.Param("id")

	unit, err := stats.ParseUnit(c.DefaultQuery("unit", string(stats.Day)))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	reference := database.Naive(time.Now())
	if raw := c.Query("reference"); raw != "" {
		if reference, err = time.Parse(referenceLayout, raw); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "reference must be in YYYY-MM-DD format"})
			return
		}
	}

	if _, err := h.topicRepo.GetTopic(ctx, topicID); err != nil {
		respondError(c, "get_topic", err)
		return
	}

	articles, err := h.articleRepo.GetArticlesByTopic(ctx, topicID, nil, nil)
	if err != nil {
		respondError(c, "get_articles_by_topic", err)
		return
	}

	result := stats.Aggregate(articles, reference, unit)

	buckets := make([]BucketView, 0, len(result.Buckets))
	for _, b := range result.Buckets {
		buckets = append(buckets, BucketView{
			From:  b.From.Format(database.TimeLayout),
			To:    b.To.Format(database.TimeLayout),
			Count: b.Count,
		})
	}

	c.JSON(http.StatusOK, StatsView{
		TopicID:          topicID,
		Unit:             string(result.Unit),
		Reference:        reference.Format(referenceLayout),
		Buckets:          buckets,
		Skipped:          result.Skipped,
		WeekOnWeekChange: result.WeekOnWeekChange,
	})
}

func (h *Handler) ListTopicArticles(c *gin.Context) {
	var opts query.Options
	var err error

	if opts.MinDate, err = query.ParseLowerBound(c.Query("min_date")); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if opts.MaxDate, err = query.ParseUpperBound(c.Query("max_date")); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if opts.Limit, err = intQuery(c, "limit"); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if opts.Offset, err = intQuery(c, "offset"); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	h.respondArticles(c, opts)
}

// ListTopicArticlesForDay lists the articles updated on a single calendar day.
func (h *Handler) ListTopicArticlesForDay(c *gin.Context) {
	date := c.Param("date")
	if _, err := time.Parse(referenceLayout, date); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "date must be in YYYY-MM-DD format"})
		return
	}

	minDate, _ := query.ParseLowerBound(date)
	maxDate, _ := query.ParseUpperBound(date)

	h.respondArticles(c, query.Options{MinDate: minDate, MaxDate: maxDate})
}

func (h *Handler) respondArticles(c *gin.Context, opts query.Options) {
	articles, err := h.querier.QueryArticles(c.Request.Context(), c.Param("id"), opts)
	if err != nil {
		respondError(c, "query_articles", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"articles": articles,
		"total":    len(articles),
	})
}

func (h *Handler) DownloadFeed(c *gin.Context) {
	id := c.Param("id")

	f, err := h.feedRepo.GetFeed(c.Request.Context(), id)
	if err != nil {
		respondError(c, "get_feed", err)
		return
	}

	if err := h.scheduler.EnqueueDownload(*f); err != nil {
		slog.Error("Failed to enqueue DownloadFeedTask", "feed", f.Name, "error", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Failed to enqueue download"})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"message": "Download enqueued",
		"feed":    newFeedView(*f),
	})
}

func (h *Handler) DispatchAll(c *gin.Context) {
	count, err := h.scheduler.Dispatch(c.Request.Context())
	if err != nil {
		slog.Error("Dispatch incomplete", "enqueued", count, "error", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error":    "Dispatch incomplete",
			"enqueued": count,
		})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"enqueued": count})
}

func (h *Handler) RefreshStats(c *gin.Context) {
	if err := h.scheduler.RefreshStats(); err != nil {
		slog.Error("Failed to enqueue ComputeTopicStatsTask", "error", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Failed to enqueue stats refresh"})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"message": "Stats refresh enqueued"})
}

func intQuery(c *gin.Context, key string) (*int, error) {
	raw := c.Query(key)
	if raw == "" {
		return nil, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return nil, errors.New(key + " must be an integer")
	}
	return &n, nil
}

func respondError(c *gin.Context, operation string, err error) {
	switch {
	case errors.Is(err, database.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, database.ErrAlreadyExists):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, query.ErrInvalidArgument):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		slog.Error("Database error", "operation", operation, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
	}
}
