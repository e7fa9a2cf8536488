package repositories_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"task-tracker/backend/internal/database"
	"task-tracker/backend/internal/models"
	"task-tracker/backend/internal/query"
	"task-tracker/backend/internal/repositories"

	"github.com/gofrs/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm/logger"
)

func setupStore(t *testing.T) *repositories.Store {
	t.Helper()

	config := database.DefaultPoolConfig()
	config.Driver = database.DriverSQLite
	config.DSN = filepath.Join(t.TempDir(), "tracker.db")
	config.LogLevel = logger.Silent

	pool, err := database.NewDatabasePool(config)
	require.NoError(t, err)
	t.Cleanup(func() { pool.Close() })
	require.NoError(t, pool.Migrate())

	store, err := repositories.NewStore(pool.DB, time.Second)
	require.NoError(t, err)
	return store
}

func createUser(t *testing.T, store *repositories.Store, name string) *models.User {
	t.Helper()
	user := &models.User{Username: name, Email: name + "@example.com", Password: "hashed", Role: models.RoleMember}
	require.NoError(t, repositories.NewUserRepository(store).Create(context.Background(), user))
	return user
}

func day(y int, m time.Month, d int) *time.Time {
	v := time.Date(y, m, d, 9, 0, 0, 0, time.UTC)
	return &v
}

func createTask(t *testing.T, store *repositories.Store, owner uuid.UUID, title string, due *time.Time, status models.TaskStatus, priority models.TaskPriority) *models.Task {
	t.Helper()
	task := &models.Task{OwnerID: owner, Title: title, DueDate: due, Status: status, Priority: priority}
	require.NoError(t, repositories.NewTaskRepository(store).Create(context.Background(), task))
	return task
}

func titles(tasks []models.Task) []string {
	out := make([]string, 0, len(tasks))
	for _, task := range tasks {
		out = append(out, task.Title)
	}
	return out
}

func TestStore_Ping(t *testing.T) {
	store := setupStore(t)
	assert.NoError(t, store.Ping(context.Background()))
}

func TestTaskRepository_ListFiltersAndSorts(t *testing.T) {
	store := setupStore(t)
	repo := repositories.NewTaskRepository(store)
	ctx := context.Background()

	owner := createUser(t, store, "owner")
	other := createUser(t, store, "other")

	createTask(t, store, owner.ID, "T1", day(2026, 1, 10), models.StatusCompleted, models.PriorityHigh)
	createTask(t, store, owner.ID, "T2", day(2026, 1, 5), models.StatusNotStarted, models.PriorityLow)
	createTask(t, store, owner.ID, "T3", nil, models.StatusCompleted, models.PriorityMedium)
	createTask(t, store, owner.ID, "T4", day(2026, 1, 20), models.StatusCompleted, models.PriorityLow)
	createTask(t, store, owner.ID, "T5", day(2026, 1, 1), models.StatusInProgress, models.PriorityHigh)
	createTask(t, store, other.ID, "foreign", day(2026, 1, 2), models.StatusCompleted, models.PriorityHigh)

	completed := models.StatusCompleted
	tasks, err := repo.List(ctx, owner.ID, query.Filter{Status: &completed}, query.Sort{By: query.SortDueDate, Order: query.Asc})
	require.NoError(t, err)
	assert.Equal(t, []string{"T1", "T4", "T3"}, titles(tasks))

	tasks, err = repo.List(ctx, owner.ID, query.Filter{Status: &completed}, query.Sort{By: query.SortDueDate, Order: query.Desc})
	require.NoError(t, err)
	assert.Equal(t, []string{"T4", "T1", "T3"}, titles(tasks))

	tasks, err = repo.List(ctx, owner.ID, query.Filter{}, query.Sort{By: query.SortPriority, Order: query.Desc})
	require.NoError(t, err)
	require.Len(t, tasks, 5)
	assert.Equal(t, models.PriorityHigh, tasks[0].Priority)
	assert.Equal(t, models.PriorityHigh, tasks[1].Priority)
	assert.Equal(t, models.PriorityMedium, tasks[2].Priority)

	tasks, err = repo.List(ctx, owner.ID, query.Filter{DueDate: day(2026, 1, 5)}, query.DefaultSort)
	require.NoError(t, err)
	assert.Equal(t, []string{"T2"}, titles(tasks))

	tasks, err = repo.List(ctx, owner.ID, query.Filter{DueDateBefore: day(2026, 1, 10), DueDateAfter: day(2026, 1, 1)}, query.DefaultSort)
	require.NoError(t, err)
	assert.Equal(t, []string{"T2"}, titles(tasks))
}

func TestTaskRepository_ListDueDateExactVersusDay(t *testing.T) {
	store := setupStore(t)
	repo := repositories.NewTaskRepository(store)
	ctx := context.Background()
	owner := createUser(t, store, "owner")

	morning := time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC)
	afternoon := time.Date(2026, 10, 19, 15, 30, 0, 0, time.UTC)
	nextDay := time.Date(2026, 10, 20, 0, 0, 0, 0, time.UTC)
	createTask(t, store, owner.ID, "morning", &morning, models.StatusNotStarted, models.PriorityLow)
	createTask(t, store, owner.ID, "afternoon", &afternoon, models.StatusNotStarted, models.PriorityLow)
	createTask(t, store, owner.ID, "tomorrow", &nextDay, models.StatusNotStarted, models.PriorityLow)

	exact := afternoon
	tasks, err := repo.List(ctx, owner.ID, query.Filter{DueDate: &exact}, query.DefaultSort)
	require.NoError(t, err)
	assert.Equal(t, []string{"afternoon"}, titles(tasks))

	tasks, err = repo.List(ctx, owner.ID, query.Filter{DueDay: &exact}, query.DefaultSort)
	require.NoError(t, err)
	assert.Equal(t, []string{"morning", "afternoon"}, titles(tasks))
}

func TestTaskRepository_ListHostileValuesMatchNothing(t *testing.T) {
	store := setupStore(t)
	repo := repositories.NewTaskRepository(store)
	owner := createUser(t, store, "owner")
	createTask(t, store, owner.ID, "T1", nil, models.StatusCompleted, models.PriorityHigh)

	hostile := models.TaskStatus("completed' OR '1'='1")
	tasks, err := repo.List(context.Background(), owner.ID, query.Filter{Status: &hostile}, query.DefaultSort)
	require.NoError(t, err)
	assert.Empty(t, tasks)

	count, err := repo.List(context.Background(), owner.ID, query.Filter{}, query.DefaultSort)
	require.NoError(t, err)
	assert.Len(t, count, 1)
}

func TestTaskRepository_UpdateSupersedesNotifications(t *testing.T) {
	store := setupStore(t)
	tasks := repositories.NewTaskRepository(store)
	notifications := repositories.NewNotificationRepository(store)
	ctx := context.Background()

	owner := createUser(t, store, "owner")
	task := createTask(t, store, owner.ID, "Report", day(2026, 1, 10), models.StatusNotStarted, models.PriorityMedium)

	inserted, err := notifications.InsertIfAbsent(ctx, &models.Notification{
		UserID: owner.ID, TaskID: task.ID, DueDate: *task.DueDate, Message: models.DueSoonMessage(task.Title),
	})
	require.NoError(t, err)
	require.True(t, inserted)

	title := "Quarterly report"
	updated, err := tasks.Update(ctx, task.ID, repositories.TaskChanges{Title: &title})
	require.NoError(t, err)
	assert.Equal(t, title, updated.Title)

	list, err := notifications.ListForUser(ctx, owner.ID, false)
	require.NoError(t, err)
	assert.Len(t, list, 1, "title change keeps the notification")

	updated, err = tasks.Update(ctx, task.ID, repositories.TaskChanges{DueDate: day(2026, 2, 1)})
	require.NoError(t, err)
	assert.True(t, updated.SameDueDate(day(2026, 2, 1)))

	list, err = notifications.ListForUser(ctx, owner.ID, false)
	require.NoError(t, err)
	assert.Empty(t, list, "due date change drops the stale notification")
}

func TestTaskRepository_UpdateMissing(t *testing.T) {
	store := setupStore(t)
	title := "x"
	_, err := repositories.NewTaskRepository(store).Update(context.Background(), uuid.Must(uuid.NewV4()), repositories.TaskChanges{Title: &title})
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestTaskRepository_DeleteCascades(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()
	tasks := repositories.NewTaskRepository(store)
	shares := repositories.NewShareRepository(store)
	comments := repositories.NewCommentRepository(store)

	owner := createUser(t, store, "owner")
	friend := createUser(t, store, "friend")
	task := createTask(t, store, owner.ID, "Shared", nil, models.StatusNotStarted, models.PriorityLow)

	require.NoError(t, shares.Upsert(ctx, &models.ShareGrant{TaskID: task.ID, SharedWithID: friend.ID, Permission: models.PermissionRead}))
	require.NoError(t, comments.Create(ctx, &models.Comment{TaskID: task.ID, AuthorID: friend.ID, Body: "hi"}))

	require.NoError(t, tasks.Delete(ctx, task.ID))

	_, err := tasks.GetByID(ctx, task.ID)
	assert.ErrorIs(t, err, models.ErrNotFound)
	_, err = shares.Find(ctx, task.ID, friend.ID)
	assert.ErrorIs(t, err, models.ErrNotFound)
	list, err := comments.ListForTask(ctx, task.ID)
	require.NoError(t, err)
	assert.Empty(t, list)

	assert.ErrorIs(t, tasks.Delete(ctx, task.ID), models.ErrNotFound)
}

func TestTaskRepository_DueSoon(t *testing.T) {
	store := setupStore(t)
	repo := repositories.NewTaskRepository(store)
	ctx := context.Background()

	owner := createUser(t, store, "owner")
	createTask(t, store, owner.ID, "overdue", day(2026, 1, 1), models.StatusInProgress, models.PriorityLow)
	createTask(t, store, owner.ID, "soon", day(2026, 1, 3), models.StatusNotStarted, models.PriorityLow)
	createTask(t, store, owner.ID, "done", day(2026, 1, 3), models.StatusCompleted, models.PriorityLow)
	createTask(t, store, owner.ID, "later", day(2026, 1, 9), models.StatusNotStarted, models.PriorityLow)
	createTask(t, store, owner.ID, "undated", nil, models.StatusNotStarted, models.PriorityLow)

	deadline := *day(2026, 1, 3)
	tasks, err := repo.DueSoon(ctx, owner.ID, deadline)
	require.NoError(t, err)
	assert.Equal(t, []string{"overdue", "soon"}, titles(tasks))

	owners, err := repo.OwnersWithDueSoon(ctx, deadline)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{owner.ID}, owners)
}

func TestShareRepository_UpsertReplacesPermission(t *testing.T) {
	store := setupStore(t)
	shares := repositories.NewShareRepository(store)
	ctx := context.Background()

	owner := createUser(t, store, "owner")
	friend := createUser(t, store, "friend")
	task := createTask(t, store, owner.ID, "Plan", day(2026, 3, 1), models.StatusNotStarted, models.PriorityHigh)

	require.NoError(t, shares.Upsert(ctx, &models.ShareGrant{TaskID: task.ID, SharedWithID: friend.ID, Permission: models.PermissionRead}))
	require.NoError(t, shares.Upsert(ctx, &models.ShareGrant{TaskID: task.ID, SharedWithID: friend.ID, Permission: models.PermissionWrite}))

	grants, err := shares.ListForTask(ctx, task.ID)
	require.NoError(t, err)
	require.Len(t, grants, 1)
	assert.Equal(t, models.PermissionWrite, grants[0].Permission)

	shared, err := shares.ListSharedWith(ctx, friend.ID)
	require.NoError(t, err)
	require.Len(t, shared, 1)
	assert.Equal(t, "Plan", shared[0].Title)
	assert.Equal(t, models.PermissionWrite, shared[0].Permission)
	assert.Equal(t, owner.ID, shared[0].OwnerID)

	require.NoError(t, shares.Delete(ctx, task.ID, friend.ID))
	assert.ErrorIs(t, shares.Delete(ctx, task.ID, friend.ID), models.ErrNotFound)
}

func TestNotificationRepository_InsertIfAbsent(t *testing.T) {
	store := setupStore(t)
	repo := repositories.NewNotificationRepository(store)
	ctx := context.Background()

	owner := createUser(t, store, "owner")
	task := createTask(t, store, owner.ID, "Pay rent", day(2026, 1, 2), models.StatusNotStarted, models.PriorityHigh)

	for i := 0; i < 3; i++ {
		inserted, err := repo.InsertIfAbsent(ctx, &models.Notification{
			UserID: owner.ID, TaskID: task.ID, DueDate: *task.DueDate, Message: models.DueSoonMessage(task.Title),
		})
		require.NoError(t, err)
		assert.Equal(t, i == 0, inserted)
	}

	list, err := repo.ListForUser(ctx, owner.ID, true)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, `Task "Pay rent" is due soon`, list[0].Message)

	changed, err := repo.MarkAllRead(ctx, owner.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), changed)

	list, err = repo.ListForUser(ctx, owner.ID, true)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestUserRepository_DuplicateIsConflict(t *testing.T) {
	store := setupStore(t)
	createUser(t, store, "alice")

	err := repositories.NewUserRepository(store).Create(context.Background(), &models.User{
		Username: "alice", Email: "other@example.com", Password: "x", Role: models.RoleMember,
	})
	assert.ErrorIs(t, err, models.ErrConflict)
}

func TestTokenRepository_Rotate(t *testing.T) {
	store := setupStore(t)
	repo := repositories.NewTokenRepository(store)
	ctx := context.Background()
	user := createUser(t, store, "alice")

	first := &models.Token{UserID: user.ID, RefreshToken: uuid.Must(uuid.NewV4()), ExpiresAt: time.Now().Add(time.Hour)}
	require.NoError(t, repo.Create(ctx, first))

	next := &models.Token{UserID: user.ID, RefreshToken: uuid.Must(uuid.NewV4()), ExpiresAt: time.Now().Add(time.Hour)}
	require.NoError(t, repo.Rotate(ctx, first.RefreshToken, next))

	_, err := repo.FindByRefresh(ctx, first.RefreshToken)
	assert.ErrorIs(t, err, models.ErrNotFound)

	again := &models.Token{UserID: user.ID, RefreshToken: uuid.Must(uuid.NewV4()), ExpiresAt: time.Now().Add(time.Hour)}
	assert.ErrorIs(t, repo.Rotate(ctx, first.RefreshToken, again), models.ErrNotFound)
}

func TestStore_CancelledContextIsUnavailable(t *testing.T) {
	store := setupStore(t)
	owner := createUser(t, store, "owner")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := repositories.NewTaskRepository(store).List(ctx, owner.ID, query.Filter{}, query.DefaultSort)
	assert.ErrorIs(t, err, models.ErrStoreUnavailable)

	_, err = repositories.NewTaskRepository(store).GetByID(ctx, owner.ID)
	assert.ErrorIs(t, err, models.ErrStoreUnavailable)
}
