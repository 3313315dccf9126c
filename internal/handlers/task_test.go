package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/yukikurage/taskhub-api/internal/authz"
	"github.com/yukikurage/taskhub-api/internal/constants"
	"github.com/yukikurage/taskhub-api/internal/dto"
	"github.com/yukikurage/taskhub-api/internal/notify"
)

func (suite *APITestSuite) TestListTasks_EmployeeSeesAssignedOnly() {
	assigned := suite.seedTask(suite.employee)
	suite.seedTask(nil)
	token := suite.login(suite.employee)

	w := suite.request(http.MethodGet, "/api/tasks", token, nil)
	suite.Require().Equal(http.StatusOK, w.Code)

	var response dto.ListResponse[dto.TaskDTO]
	suite.Require().NoError(json.Unmarshal(w.Body.Bytes(), &response))
	suite.Require().Len(response.Items, 1)
	suite.Equal(assigned.ID, response.Items[0].ID)
	suite.Equal(int64(1), response.TotalCount)
}

func (suite *APITestSuite) TestCreateTask_Success() {
	task := suite.seedTask(nil)
	token := suite.login(suite.manager)

	w := suite.request(http.MethodPost, "/api/tasks", token, map[string]any{
		"project_id":  task.ProjectID,
		"title":       "Prepare demo",
		"assignee_id": suite.employee.ID,
	})
	suite.Require().Equal(http.StatusCreated, w.Code, w.Body.String())

	var response dto.TaskDTO
	suite.Require().NoError(json.Unmarshal(w.Body.Bytes(), &response))
	suite.Equal(authz.TaskStatusTodo, response.Status)
	suite.Equal(suite.manager.ID, response.ReporterID)
	suite.Require().NotNil(response.AssigneeID)
	suite.Equal(suite.employee.ID, *response.AssigneeID)
}

func (suite *APITestSuite) TestCreateTask_InvalidRequest() {
	token := suite.login(suite.manager)

	w := suite.request(http.MethodPost, "/api/tasks", token, map[string]any{"title": "No project"})
	suite.Equal(http.StatusBadRequest, w.Code)
	suite.Equal("INVALID_INPUT", suite.errorCode(w))
}

func (suite *APITestSuite) TestUpdateTask_EmployeeNotAssignee() {
	task := suite.seedTask(nil)
	token := suite.login(suite.employee)

	w := suite.request(http.MethodPatch, taskURL(task.ID, ""), token, map[string]any{"title": "Hijacked"})
	suite.Equal(http.StatusForbidden, w.Code)
	suite.Equal(string(authz.ReasonNotOwner), suite.errorCode(w))
}

func (suite *APITestSuite) TestUpdateTask_NullDueDate() {
	task := suite.seedTask(suite.employee)
	token := suite.login(suite.manager)

	due := time.Date(2030, 1, 2, 0, 0, 0, 0, time.UTC)
	w := suite.request(http.MethodPatch, taskURL(task.ID, ""), token, map[string]any{"due_date": due})
	suite.Require().Equal(http.StatusOK, w.Code, w.Body.String())

	var response dto.TaskDTO
	suite.Require().NoError(json.Unmarshal(w.Body.Bytes(), &response))
	suite.Require().NotNil(response.DueDate)
	suite.True(due.Equal(*response.DueDate))

	w = suite.request(http.MethodPatch, taskURL(task.ID, ""), token, map[string]any{"due_date": nil})
	suite.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	response = dto.TaskDTO{}
	suite.Require().NoError(json.Unmarshal(w.Body.Bytes(), &response))
	suite.Nil(response.DueDate)
}

func (suite *APITestSuite) TestChangeStatus_AssigneeMovesTask() {
	task := suite.seedTask(suite.employee)
	token := suite.login(suite.employee)

	w := suite.request(http.MethodPut, taskURL(task.ID, "/status"), token, map[string]any{"status": authz.TaskStatusInProgress})
	suite.Require().Equal(http.StatusOK, w.Code, w.Body.String())

	var response dto.TaskDTO
	suite.Require().NoError(json.Unmarshal(w.Body.Bytes(), &response))
	suite.Equal(authz.TaskStatusInProgress, response.Status)
}

func (suite *APITestSuite) TestChangeStatus_InvalidTransition() {
	task := suite.seedTask(suite.employee)
	token := suite.login(suite.manager)

	w := suite.request(http.MethodPut, taskURL(task.ID, "/status"), token, map[string]any{"status": authz.TaskStatusDone})
	suite.Equal(http.StatusBadRequest, w.Code)
	suite.Equal("INVALID_STATUS_TRANSITION", suite.errorCode(w))
}

func (suite *APITestSuite) TestDeleteTask_RemovedByOverride() {
	task := suite.seedTask(nil)
	adminToken := suite.login(suite.orgAdmin)

	matrix := authz.RoleDefaults(authz.RoleProjectManager)
	matrix.Tasks.Delete = false
	w := suite.request(http.MethodPut, "/api/permissions/"+strconv.FormatUint(suite.manager.ID, 10), adminToken,
		map[string]any{"permissions": matrix})
	suite.Require().Equal(http.StatusOK, w.Code, w.Body.String())

	managerToken := suite.login(suite.manager)
	w = suite.request(http.MethodDelete, taskURL(task.ID, ""), managerToken, nil)
	suite.Equal(http.StatusForbidden, w.Code)
	suite.Equal(string(authz.ReasonInsufficientCapability), suite.errorCode(w))

	w = suite.request(http.MethodDelete, taskURL(task.ID, ""), adminToken, nil)
	suite.Equal(http.StatusOK, w.Code)

	w = suite.request(http.MethodGet, taskURL(task.ID, ""), adminToken, nil)
	suite.Equal(http.StatusNotFound, w.Code)
}

func (suite *APITestSuite) TestComments_OnlyAuthorEdits() {
	task := suite.seedTask(suite.employee)
	employeeToken := suite.login(suite.employee)

	w := suite.request(http.MethodPost, taskURL(task.ID, "/comments"), employeeToken, map[string]any{"body": "On it"})
	suite.Require().Equal(http.StatusCreated, w.Code, w.Body.String())
	var comment dto.CommentDTO
	suite.Require().NoError(json.Unmarshal(w.Body.Bytes(), &comment))

	managerToken := suite.login(suite.manager)
	url := taskURL(task.ID, "/comments/"+strconv.FormatUint(comment.ID, 10))
	w = suite.request(http.MethodPatch, url, managerToken, map[string]any{"body": "Rewritten"})
	suite.Equal(http.StatusForbidden, w.Code)
	suite.Equal(string(authz.ReasonNotOwner), suite.errorCode(w))

	w = suite.request(http.MethodPatch, url, employeeToken, map[string]any{"body": "On it today"})
	suite.Equal(http.StatusOK, w.Code)
}

func (suite *APITestSuite) TestTenantHeader_CrossTenantDenied() {
	token := suite.login(suite.employee)

	w := suite.request(http.MethodGet, "/api/tasks", token, nil,
		constants.HeaderTenantID, strconv.FormatUint(suite.tenantB.ID, 10))
	suite.Equal(http.StatusForbidden, w.Code)
	suite.Equal(string(authz.ReasonTenantAccessDenied), suite.errorCode(w))

	w = suite.request(http.MethodGet, "/api/tasks?tenant_id=abc", token, nil)
	suite.Equal(http.StatusBadRequest, w.Code)
}

func (suite *APITestSuite) TestForeignTask_IndistinguishableFromMissing() {
	task := suite.seedTask(nil)
	token := suite.login(suite.adminB)

	foreign := suite.request(http.MethodGet, taskURL(task.ID, ""), token, nil)
	missing := suite.request(http.MethodGet, taskURL(task.ID+1000, ""), token, nil)

	suite.Equal(http.StatusNotFound, foreign.Code)
	suite.Equal(missing.Code, foreign.Code)
	suite.JSONEq(missing.Body.String(), foreign.Body.String())
}

func (suite *APITestSuite) TestSuperAdmin_RefusedOnBusinessRoutes() {
	token := suite.login(suite.superAdmin)

	w := suite.request(http.MethodGet, "/api/tasks", token, nil,
		constants.HeaderTenantID, strconv.FormatUint(suite.tenantA.ID, 10))
	suite.Equal(http.StatusForbidden, w.Code)
	suite.Equal(string(authz.ReasonSuperAdminScope), suite.errorCode(w))

	w = suite.request(http.MethodPost, "/api/tenants", token, map[string]any{"name": "Initech", "slug": "initech"})
	suite.Require().Equal(http.StatusCreated, w.Code, w.Body.String())

	var created dto.CreatedTenantDTO
	suite.Require().NoError(json.Unmarshal(w.Body.Bytes(), &created))
	suite.Equal("initech", created.Tenant.Slug)
}

func (suite *APITestSuite) TestTenants_OrgAdminDenied() {
	token := suite.login(suite.orgAdmin)

	w := suite.request(http.MethodGet, "/api/tenants", token, nil)
	suite.Equal(http.StatusForbidden, w.Code)
	suite.Equal(string(authz.ReasonInsufficientCapability), suite.errorCode(w))
}

func (suite *APITestSuite) TestNotificationStream_DeliversAssignment() {
	task := suite.seedTask(nil)
	employeeToken := suite.login(suite.employee)
	managerToken := suite.login(suite.manager)

	server := httptest.NewServer(suite.router)
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http") + "/api/ws"
	conn, _, err := websocket.Dial(ctx, wsURL, &websocket.DialOptions{
		HTTPHeader: http.Header{"Authorization": []string{"Bearer " + employeeToken}},
	})
	suite.Require().NoError(err)
	defer conn.CloseNow()

	var ready notify.Event
	suite.Require().NoError(wsjson.Read(ctx, conn, &ready))
	suite.Equal(notify.EventReady, ready.Type)

	w := suite.request(http.MethodPut, taskURL(task.ID, "/assignee"), managerToken, map[string]any{"assignee_id": suite.employee.ID})
	suite.Require().Equal(http.StatusOK, w.Code, w.Body.String())

	var evt notify.Event
	suite.Require().NoError(wsjson.Read(ctx, conn, &evt))
	suite.Equal(notify.EventTaskAssigned, evt.Type)
	suite.Equal(notify.UserTopic(suite.employee.ID), evt.Topic)
}

func (suite *APITestSuite) TestNotificationStream_RequiresAuth() {
	w := suite.request(http.MethodGet, "/api/ws", "", nil)
	suite.Equal(http.StatusUnauthorized, w.Code)
}
