package curation

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/hokkaidev/task-curation-api/internal/ai"
	"github.com/hokkaidev/task-curation-api/internal/clock"
	"github.com/hokkaidev/task-curation-api/internal/config"
	"github.com/hokkaidev/task-curation-api/internal/models"
	"github.com/hokkaidev/task-curation-api/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// CurationJobTestSuite exercises the full pipeline end to end over an
// in-memory database.
type CurationJobTestSuite struct {
	suite.Suite
	db    *gorm.DB
	clk   *clock.FakeClock
	users repository.UserRepository
	repo  repository.CurationRepository
}

func (suite *CurationJobTestSuite) SetupTest() {
	var err error
	suite.db, err = gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		TranslateError: true,
	})
	suite.Require().NoError(err)

	err = suite.db.AutoMigrate(
		&models.User{},
		&models.Organization{},
		&models.Group{},
		&models.GroupMember{},
		&models.Project{},
		&models.Task{},
		&models.CuratedAssignment{},
		&models.DailyCurationRecord{},
		&models.DailyWeightMetric{},
		&models.CurationPromptLog{},
	)
	suite.Require().NoError(err)

	suite.clk = clock.NewFakeClock(time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC))
	suite.users = repository.NewUserRepository(suite.db)
	suite.repo = repository.NewCurationRepository(suite.db)
}

func (suite *CurationJobTestSuite) TearDownTest() {
	sqlDB, err := suite.db.DB()
	suite.Require().NoError(err)
	sqlDB.Close()
}

// newJob builds a pipeline wired to the given chat client (nil disables AI).
func (suite *CurationJobTestSuite) newJob(chat ai.ChatClient) *UserCurationJob {
	log := zap.NewNop()
	projects := repository.NewProjectRepository(suite.db)
	tasks := repository.NewTaskRepository(suite.db)

	cfg := config.AIConfig{Model: "gpt-4o", Timeout: time.Second}
	if chat != nil {
		cfg.APIKey = "test-key"
	}

	resolver := NewVisibilityResolver(projects, suite.repo, suite.clk, log)
	history := NewHistoryAnalyzer(tasks, suite.repo, suite.clk, log)
	engine := NewEngine(chat, cfg, suite.repo, suite.clk, log)
	store := NewAssignmentStore(suite.repo, suite.clk, log)
	weights := NewWeightCalculator(suite.repo, suite.clk, log)
	return NewUserCurationJob(resolver, history, engine, store, weights, suite.repo, log)
}

func (suite *CurationJobTestSuite) createOrganization(name string, isDefault bool) *models.Organization {
	org := &models.Organization{Name: name, IsDefault: isDefault}
	suite.db.Create(org)
	return org
}

func (suite *CurationJobTestSuite) createUser(email string, orgID *uint64) *models.User {
	verified := suite.clk.Now().AddDate(0, -1, 0)
	user := &models.User{
		Email:           email,
		Name:            email,
		OrganizationID:  orgID,
		EmailVerifiedAt: &verified,
	}
	suite.db.Create(user)

	loaded, err := suite.users.FindByID(user.ID)
	suite.Require().NoError(err)
	return loaded
}

func (suite *CurationJobTestSuite) createProject(ownerID uint64, groupID *uint64) *models.Project {
	project := &models.Project{
		Name:        "Project",
		ProjectType: models.ProjectTypeFinite,
		OwnerID:     ownerID,
		GroupID:     groupID,
	}
	suite.db.Create(project)
	return project
}

func (suite *CurationJobTestSuite) createTask(projectID uint64, sortOrder int, opts func(*models.Task)) *models.Task {
	task := &models.Task{
		ProjectID: projectID,
		Title:     "Task",
		Status:    models.TaskStatusPending,
		Priority:  models.TaskPriorityMedium,
		SortOrder: sortOrder,
	}
	if opts != nil {
		opts(task)
	}
	suite.db.Create(task)
	return task
}

func (suite *CurationJobTestSuite) overdue() *time.Time {
	t := clock.Today(suite.clk).AddDate(0, 0, -1)
	return &t
}

// TestRun_IdempotentForIndividual verifies re-running the same day yields one
// curation record and no duplicate assignments.
func (suite *CurationJobTestSuite) TestRun_IdempotentForIndividual() {
	org := suite.createOrganization("personal", true)
	user := suite.createUser("solo@example.com", &org.ID)
	project := suite.createProject(user.ID, nil)
	suite.createTask(project.ID, 1, func(t *models.Task) { t.DueDate = suite.overdue() })

	job := suite.newJob(nil)
	suite.Require().NoError(job.Run(context.Background(), user))
	suite.Require().NoError(job.Run(context.Background(), user))

	var recordCount int64
	suite.db.Model(&models.DailyCurationRecord{}).Count(&recordCount)
	assert.Equal(suite.T(), int64(1), recordCount)

	var assignments []models.CuratedAssignment
	suite.db.Find(&assignments)
	assert.Len(suite.T(), assignments, 1)
	assert.Equal(suite.T(), user.ID, assignments[0].AssignedToID)
	assert.Equal(suite.T(), 1, assignments[0].InitialIndex)
	assert.Equal(suite.T(), 1, assignments[0].CurrentIndex)
	assert.Equal(suite.T(), 0, assignments[0].MovedCount)
}

// TestRun_OrganizationExclusivity verifies a task claimed today by one
// organization member never reaches another member's candidate list.
func (suite *CurationJobTestSuite) TestRun_OrganizationExclusivity() {
	org := suite.createOrganization("acme", false)
	first := suite.createUser("first@example.com", &org.ID)
	second := suite.createUser("second@example.com", &org.ID)

	group := &models.Group{OrganizationID: org.ID, Name: "team"}
	suite.db.Create(group)
	suite.db.Create(&models.GroupMember{GroupID: group.ID, UserID: first.ID})
	suite.db.Create(&models.GroupMember{GroupID: group.ID, UserID: second.ID})

	project := suite.createProject(first.ID, &group.ID)
	task := suite.createTask(project.ID, 1, func(t *models.Task) { t.DueDate = suite.overdue() })

	job := suite.newJob(nil)
	suite.Require().NoError(job.Run(context.Background(), first))

	var claimed []models.CuratedAssignment
	suite.db.Where("curatable_id = ?", task.ID).Find(&claimed)
	suite.Require().Len(claimed, 1)
	suite.Require().Equal(first.ID, claimed[0].AssignedToID)

	// The second member sees an empty pool: no record, no assignment.
	suite.Require().NoError(job.Run(context.Background(), second))

	var secondRecords int64
	suite.db.Model(&models.DailyCurationRecord{}).
		Where("user_id = ?", second.ID).Count(&secondRecords)
	assert.Equal(suite.T(), int64(0), secondRecords)

	var secondAssignments int64
	suite.db.Model(&models.CuratedAssignment{}).
		Where("assigned_to_id = ?", second.ID).Count(&secondAssignments)
	assert.Equal(suite.T(), int64(0), secondAssignments)
}

// TestRun_IndividualSeesTasksDespiteClaims verifies default-organization
// users are not subject to the shared-pool exclusion.
func (suite *CurationJobTestSuite) TestRun_IndividualSeesTasksDespiteClaims() {
	org := suite.createOrganization("personal", true)
	user := suite.createUser("solo@example.com", &org.ID)
	project := suite.createProject(user.ID, nil)
	task := suite.createTask(project.ID, 1, func(t *models.Task) { t.DueDate = suite.overdue() })

	job := suite.newJob(nil)
	suite.Require().NoError(job.Run(context.Background(), user))
	// A second run the same day re-curates the same task.
	suite.Require().NoError(job.Run(context.Background(), user))

	var assignments []models.CuratedAssignment
	suite.db.Where("curatable_id = ?", task.ID).Find(&assignments)
	assert.Len(suite.T(), assignments, 1)
}

// TestRun_ZeroProjects verifies the documented empty-input shape: no curation
// records and an all-zero weight metric row.
func (suite *CurationJobTestSuite) TestRun_ZeroProjects() {
	org := suite.createOrganization("personal", true)
	user := suite.createUser("empty@example.com", &org.ID)

	job := suite.newJob(nil)
	suite.Require().NoError(job.Run(context.Background(), user))

	var recordCount int64
	suite.db.Model(&models.DailyCurationRecord{}).Count(&recordCount)
	assert.Equal(suite.T(), int64(0), recordCount)

	metric, err := suite.repo.FindWeightMetric(user.ID, clock.Today(suite.clk))
	suite.Require().NoError(err)
	assert.Equal(suite.T(), 0, metric.TotalTasks)
	assert.Equal(suite.T(), 0, metric.SignedTasks)
	assert.Equal(suite.T(), 0, metric.UnsignedTasks)
	assert.Equal(suite.T(), float64(0), metric.TotalStoryPoints)
}

// TestRun_AIFailureStillWritesRecord verifies the partial-failure contract: a
// throwing AI provider degrades to fallback output, persisted with
// ai_generated=false.
func (suite *CurationJobTestSuite) TestRun_AIFailureStillWritesRecord() {
	org := suite.createOrganization("personal", true)
	user := suite.createUser("solo@example.com", &org.ID)
	project := suite.createProject(user.ID, nil)
	suite.createTask(project.ID, 1, func(t *models.Task) { t.DueDate = suite.overdue() })

	job := suite.newJob(&fakeChat{err: errors.New("provider down")})
	suite.Require().NoError(job.Run(context.Background(), user))

	record, err := suite.repo.FindCurationRecord(user.ID, project.ID, clock.Today(suite.clk))
	suite.Require().NoError(err)
	assert.False(suite.T(), record.AIGenerated)
	assert.NotEqual(suite.T(), "[]", string(record.Suggestions))
	assert.NotEmpty(suite.T(), record.Summary)
}

// TestRun_PromptLogsClearedEachCycle verifies the prompt-log lifecycle.
func (suite *CurationJobTestSuite) TestRun_PromptLogsClearedEachCycle() {
	org := suite.createOrganization("personal", true)
	user := suite.createUser("solo@example.com", &org.ID)
	project := suite.createProject(user.ID, nil)
	suite.createTask(project.ID, 1, func(t *models.Task) { t.DueDate = suite.overdue() })

	chat := &fakeChat{content: `{"suggestions":[{"type":"priority","title":"Go"}],"recommended_tasks":[]}`}
	job := suite.newJob(chat)

	suite.Require().NoError(job.Run(context.Background(), user))
	suite.Require().NoError(job.Run(context.Background(), user))

	var logCount int64
	suite.db.Model(&models.CurationPromptLog{}).Where("user_id = ?", user.ID).Count(&logCount)
	assert.Equal(suite.T(), int64(1), logCount, "previous cycle's prompt logs are cleared at run start")
}

// TestRun_SkipsProjectsWithoutCandidates verifies a project with no curatable
// leaves writes no record while the user's other projects still curate.
func (suite *CurationJobTestSuite) TestRun_SkipsProjectsWithoutCandidates() {
	org := suite.createOrganization("personal", true)
	user := suite.createUser("solo@example.com", &org.ID)

	suite.createProject(user.ID, nil) // no tasks at all

	healthy := suite.createProject(user.ID, nil)
	suite.createTask(healthy.ID, 1, func(t *models.Task) { t.DueDate = suite.overdue() })

	job := suite.newJob(nil)
	suite.Require().NoError(job.Run(context.Background(), user))

	var records []models.DailyCurationRecord
	suite.db.Find(&records)
	suite.Require().Len(records, 1)
	assert.Equal(suite.T(), healthy.ID, records[0].ProjectID)
}

// TestRunProject_ScopesToOneProject verifies the on-demand single-project
// trigger skips the user's other projects.
func (suite *CurationJobTestSuite) TestRunProject_ScopesToOneProject() {
	org := suite.createOrganization("personal", true)
	user := suite.createUser("solo@example.com", &org.ID)

	target := suite.createProject(user.ID, nil)
	suite.createTask(target.ID, 1, func(t *models.Task) { t.DueDate = suite.overdue() })
	other := suite.createProject(user.ID, nil)
	suite.createTask(other.ID, 1, func(t *models.Task) { t.DueDate = suite.overdue() })

	job := suite.newJob(nil)
	suite.Require().NoError(job.RunProject(context.Background(), user, target.ID))

	var records []models.DailyCurationRecord
	suite.db.Find(&records)
	suite.Require().Len(records, 1)
	assert.Equal(suite.T(), target.ID, records[0].ProjectID)
}

func TestCurationJobTestSuite(t *testing.T) {
	suite.Run(t, new(CurationJobTestSuite))
}
