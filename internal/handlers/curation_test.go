package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hokkaidev/task-curation-api/internal/clock"
	"github.com/hokkaidev/task-curation-api/internal/config"
	"github.com/hokkaidev/task-curation-api/internal/curation"
	"github.com/hokkaidev/task-curation-api/internal/database"
	"github.com/hokkaidev/task-curation-api/internal/dto"
	"github.com/hokkaidev/task-curation-api/internal/models"
	"github.com/hokkaidev/task-curation-api/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// CurationHandlerTestSuite defines the test suite for CurationHandler
type CurationHandlerTestSuite struct {
	suite.Suite
	db     *gorm.DB
	router *gin.Engine
	clk    *clock.FakeClock
}

// SetupTest runs before each test
func (suite *CurationHandlerTestSuite) SetupTest() {
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

	database.SetDB(suite.db)

	suite.clk = clock.NewFakeClock(time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC))
	log := zap.NewNop()

	users := repository.NewUserRepository(suite.db)
	projects := repository.NewProjectRepository(suite.db)
	tasks := repository.NewTaskRepository(suite.db)
	curationRepo := repository.NewCurationRepository(suite.db)

	aiCfg := config.AIConfig{Model: "gpt-4o", Timeout: time.Second}
	job := curation.NewUserCurationJob(
		curation.NewVisibilityResolver(projects, curationRepo, suite.clk, log),
		curation.NewHistoryAnalyzer(tasks, curationRepo, suite.clk, log),
		curation.NewEngine(nil, aiCfg, curationRepo, suite.clk, log),
		curation.NewAssignmentStore(curationRepo, suite.clk, log),
		curation.NewWeightCalculator(curationRepo, suite.clk, log),
		curationRepo,
		log,
	)

	handler := NewCurationHandler(users, curationRepo, job, suite.clk)

	gin.SetMode(gin.TestMode)
	suite.router = gin.New()
	suite.router.POST("/api/curation/run", handler.RunCuration)
	suite.router.GET("/api/users/:id/curated", handler.GetCuratedTasks)
	suite.router.GET("/api/users/:id/curations", handler.GetCurationHistory)
	suite.router.GET("/api/users/:id/metrics", handler.GetWeightMetric)
}

// TearDownTest runs after each test
func (suite *CurationHandlerTestSuite) TearDownTest() {
	sqlDB, err := suite.db.DB()
	suite.Require().NoError(err)
	sqlDB.Close()
}

func (suite *CurationHandlerTestSuite) createVerifiedUser(email string) *models.User {
	verified := suite.clk.Now().AddDate(0, -1, 0)
	user := &models.User{Email: email, Name: email, EmailVerifiedAt: &verified}
	suite.db.Create(user)
	return user
}

func (suite *CurationHandlerTestSuite) createProjectWithOverdueTask(ownerID uint64) *models.Project {
	project := &models.Project{
		Name:        "Project",
		ProjectType: models.ProjectTypeFinite,
		OwnerID:     ownerID,
	}
	suite.db.Create(project)

	due := clock.Today(suite.clk).AddDate(0, 0, -1)
	task := &models.Task{
		ProjectID: project.ID,
		Title:     "Overdue",
		Status:    models.TaskStatusPending,
		Priority:  models.TaskPriorityMedium,
		SortOrder: 1,
		DueDate:   &due,
	}
	suite.db.Create(task)
	return project
}

func (suite *CurationHandlerTestSuite) postJSON(url string, body interface{}) *httptest.ResponseRecorder {
	payload, err := json.Marshal(body)
	suite.Require().NoError(err)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, url, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	suite.router.ServeHTTP(w, req)
	return w
}

func (suite *CurationHandlerTestSuite) get(url string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, url, nil)
	suite.router.ServeHTTP(w, req)
	return w
}

func (suite *CurationHandlerTestSuite) TestRunCuration_Success() {
	user := suite.createVerifiedUser("runner@example.com")
	suite.createProjectWithOverdueTask(user.ID)

	w := suite.postJSON("/api/curation/run", gin.H{"user_id": user.ID})
	assert.Equal(suite.T(), http.StatusOK, w.Code)

	var records int64
	suite.db.Model(&models.DailyCurationRecord{}).Count(&records)
	assert.Equal(suite.T(), int64(1), records)
}

func (suite *CurationHandlerTestSuite) TestRunCuration_ProjectScoped() {
	user := suite.createVerifiedUser("runner@example.com")
	target := suite.createProjectWithOverdueTask(user.ID)
	suite.createProjectWithOverdueTask(user.ID)

	w := suite.postJSON("/api/curation/run",
		gin.H{"user_id": user.ID, "project_id": target.ID})
	assert.Equal(suite.T(), http.StatusOK, w.Code)

	var records []models.DailyCurationRecord
	suite.db.Find(&records)
	suite.Require().Len(records, 1)
	assert.Equal(suite.T(), target.ID, records[0].ProjectID)
}

func (suite *CurationHandlerTestSuite) TestRunCuration_UserNotFound() {
	w := suite.postJSON("/api/curation/run", gin.H{"user_id": 9999})
	assert.Equal(suite.T(), http.StatusNotFound, w.Code)
}

func (suite *CurationHandlerTestSuite) TestRunCuration_IneligibleUser() {
	user := &models.User{Email: "pending@example.com", Name: "pending", PendingApproval: true}
	suite.db.Create(user)

	w := suite.postJSON("/api/curation/run", gin.H{"user_id": user.ID})
	assert.Equal(suite.T(), http.StatusBadRequest, w.Code)
}

func (suite *CurationHandlerTestSuite) TestGetCuratedTasks_ReturnsTodaysList() {
	user := suite.createVerifiedUser("reader@example.com")
	suite.createProjectWithOverdueTask(user.ID)
	suite.postJSON("/api/curation/run", gin.H{"user_id": user.ID})

	w := suite.get("/api/users/" + itoa(user.ID) + "/curated")
	assert.Equal(suite.T(), http.StatusOK, w.Code)

	var resp dto.CuratedListResponse
	suite.Require().NoError(json.Unmarshal(w.Body.Bytes(), &resp))
	suite.Require().Len(resp.Assignments, 1)
	assert.Equal(suite.T(), models.CuratableTypeTask, resp.Assignments[0].CuratableType)
	assert.Equal(suite.T(), 1, resp.Assignments[0].CurrentIndex)
}

func (suite *CurationHandlerTestSuite) TestGetCuratedTasks_EmptyList() {
	user := suite.createVerifiedUser("empty@example.com")

	w := suite.get("/api/users/" + itoa(user.ID) + "/curated")
	assert.Equal(suite.T(), http.StatusOK, w.Code)

	var resp dto.CuratedListResponse
	suite.Require().NoError(json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Empty(suite.T(), resp.Assignments)
}

func (suite *CurationHandlerTestSuite) TestGetCurationHistory_Paginated() {
	user := suite.createVerifiedUser("history@example.com")
	for day := 1; day <= 3; day++ {
		record := &models.DailyCurationRecord{
			UserID:             user.ID,
			ProjectID:          uint64(day),
			CurationDate:       clock.Today(suite.clk).AddDate(0, 0, -day),
			Suggestions:        []byte(`[]`),
			FocusAreas:         []byte(`[]`),
			RecommendedTaskIDs: []byte(`[]`),
			Summary:            "past run",
		}
		suite.Require().NoError(suite.db.Create(record).Error)
	}

	w := suite.get("/api/users/" + itoa(user.ID) + "/curations?page=1&limit=2")
	assert.Equal(suite.T(), http.StatusOK, w.Code)

	var resp dto.CurationHistoryResponse
	suite.Require().NoError(json.Unmarshal(w.Body.Bytes(), &resp))
	suite.Require().Len(resp.Records, 2)
	assert.Equal(suite.T(), int64(3), resp.Pagination.Total)
	assert.Equal(suite.T(), 2, resp.Pagination.Limit)
	// Newest first.
	assert.Equal(suite.T(), uint64(1), resp.Records[0].ProjectID)
}

func (suite *CurationHandlerTestSuite) TestGetWeightMetric_NotFoundBeforeRun() {
	user := suite.createVerifiedUser("metrics@example.com")

	w := suite.get("/api/users/" + itoa(user.ID) + "/metrics")
	assert.Equal(suite.T(), http.StatusNotFound, w.Code)
}

func (suite *CurationHandlerTestSuite) TestGetWeightMetric_AfterRun() {
	user := suite.createVerifiedUser("metrics@example.com")
	suite.createProjectWithOverdueTask(user.ID)
	suite.postJSON("/api/curation/run", gin.H{"user_id": user.ID})

	w := suite.get("/api/users/" + itoa(user.ID) + "/metrics")
	assert.Equal(suite.T(), http.StatusOK, w.Code)

	var metric dto.WeightMetricDTO
	suite.Require().NoError(json.Unmarshal(w.Body.Bytes(), &metric))
	assert.Equal(suite.T(), 1, metric.TotalTasks)
	assert.Equal(suite.T(), 1, metric.UnsignedTasks)
}

func TestCurationHandlerTestSuite(t *testing.T) {
	suite.Run(t, new(CurationHandlerTestSuite))
}
