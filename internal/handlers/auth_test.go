package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"

	"github.com/yukikurage/taskhub-api/internal/constants"
	"github.com/yukikurage/taskhub-api/internal/dto"
)

func (suite *APITestSuite) TestLogin_Success() {
	w := suite.request(http.MethodPost, "/api/auth/login", "", map[string]string{
		"email":    suite.employee.Email,
		"password": testPassword,
	})
	suite.Require().Equal(http.StatusOK, w.Code)

	var response dto.LoginResponse
	suite.Require().NoError(json.Unmarshal(w.Body.Bytes(), &response))
	suite.NotEmpty(response.Token)
	suite.Equal("Bearer", response.TokenType)
	suite.Equal(suite.employee.ID, response.User.ID)

	var sessionCookie bool
	for _, cookie := range w.Result().Cookies() {
		if cookie.Name == constants.SessionCookieName {
			sessionCookie = true
		}
	}
	suite.True(sessionCookie, "expected session cookie to be set")
}

func (suite *APITestSuite) TestLogin_BadPassword() {
	w := suite.request(http.MethodPost, "/api/auth/login", "", map[string]string{
		"email":    suite.employee.Email,
		"password": "wrong-password",
	})
	suite.Equal(http.StatusUnauthorized, w.Code)
	suite.Equal("INVALID_CREDENTIALS", suite.errorCode(w))
}

func (suite *APITestSuite) TestLogin_InvalidRequest() {
	w := suite.request(http.MethodPost, "/api/auth/login", "", map[string]string{"email": suite.employee.Email})
	suite.Equal(http.StatusBadRequest, w.Code)
}

func (suite *APITestSuite) TestGetCurrentUser() {
	token := suite.login(suite.manager)

	w := suite.request(http.MethodGet, "/api/auth/me", token, nil)
	suite.Require().Equal(http.StatusOK, w.Code)

	var response dto.UserDTO
	suite.Require().NoError(json.Unmarshal(w.Body.Bytes(), &response))
	suite.Equal(suite.manager.Email, response.Email)
}

func (suite *APITestSuite) TestGetCurrentUser_Unauthorized() {
	w := suite.request(http.MethodGet, "/api/auth/me", "", nil)
	suite.Equal(http.StatusUnauthorized, w.Code)
	suite.Equal("UNAUTHORIZED", suite.errorCode(w))

	w = suite.request(http.MethodGet, "/api/auth/me", "not-a-token", nil)
	suite.Equal(http.StatusUnauthorized, w.Code)
}

func (suite *APITestSuite) TestGetCurrentUser_SessionCookie() {
	login := suite.request(http.MethodPost, "/api/auth/login", "", map[string]string{
		"email":    suite.orgAdmin.Email,
		"password": testPassword,
	})
	suite.Require().Equal(http.StatusOK, login.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
	for _, cookie := range login.Result().Cookies() {
		req.AddCookie(cookie)
	}
	w := httptest.NewRecorder()
	suite.router.ServeHTTP(w, req)
	suite.Equal(http.StatusOK, w.Code)
}

func (suite *APITestSuite) TestLogout_RevokesToken() {
	token := suite.login(suite.employee)

	w := suite.request(http.MethodPost, "/api/auth/logout", token, nil)
	suite.Require().Equal(http.StatusOK, w.Code)

	w = suite.request(http.MethodGet, "/api/auth/me", token, nil)
	suite.Equal(http.StatusUnauthorized, w.Code)
}

func (suite *APITestSuite) TestLogin_InactiveTenant() {
	suite.Require().NoError(suite.db.Model(suite.tenantB).Update("is_active", false).Error)

	w := suite.request(http.MethodPost, "/api/auth/login", "", map[string]string{
		"email":    suite.adminB.Email,
		"password": testPassword,
	})
	suite.Equal(http.StatusForbidden, w.Code)
	suite.Equal("TENANT_INACTIVE", suite.errorCode(w))
}
