package handlers

import (
	"context"
	"encoding/csv"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"

	"expensebook/internal/auth"
	"expensebook/internal/expenses"
	"expensebook/internal/storage"
	"expensebook/web"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"golang.org/x/crypto/bcrypt"
)

// HandlersTestSuite drives the routes through a real HTTP server backed by
// an in-memory database
type HandlersTestSuite struct {
	suite.Suite
	db     *storage.DB
	server *httptest.Server
	client *http.Client
}

func (suite *HandlersTestSuite) SetupTest() {
	db, err := storage.NewDB(":memory:")
	require.NoError(suite.T(), err)
	suite.db = db

	signer := auth.NewSigner([]byte("handlers-test-secret"))
	authSvc := auth.NewService(db, signer, auth.WithHashCost(bcrypt.MinCost))
	h, err := NewHandlers(authSvc, expenses.NewService(db), signer, web.Templates(), false)
	require.NoError(suite.T(), err)

	mux := http.NewServeMux()
	h.Mount(mux)
	suite.server = httptest.NewServer(mux)
	suite.client = suite.newClient()
}

func (suite *HandlersTestSuite) TearDownTest() {
	suite.server.Close()
	suite.db.Close()
}

// newClient returns a client with its own cookie jar that does not follow
// redirects.
func (suite *HandlersTestSuite) newClient() *http.Client {
	jar, err := cookiejar.New(nil)
	require.NoError(suite.T(), err)
	return &http.Client{
		Jar: jar,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}

func (suite *HandlersTestSuite) get(client *http.Client, path string) (*http.Response, string) {
	resp, err := client.Get(suite.server.URL + path)
	require.NoError(suite.T(), err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(suite.T(), err)
	return resp, string(body)
}

func (suite *HandlersTestSuite) post(client *http.Client, path string, form url.Values) (*http.Response, string) {
	resp, err := client.PostForm(suite.server.URL+path, form)
	require.NoError(suite.T(), err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(suite.T(), err)
	return resp, string(body)
}

func (suite *HandlersTestSuite) assertRedirect(resp *http.Response, location string) {
	assert.Equal(suite.T(), http.StatusFound, resp.StatusCode)
	assert.Equal(suite.T(), location, resp.Header.Get("Location"))
}

func (suite *HandlersTestSuite) register(client *http.Client, username, password string) {
	resp, _ := suite.post(client, "/register", url.Values{"username": {username}, "password": {password}})
	suite.assertRedirect(resp, "/login")
}

func (suite *HandlersTestSuite) login(client *http.Client, username, password string) {
	resp, _ := suite.post(client, "/login", url.Values{"username": {username}, "password": {password}})
	suite.assertRedirect(resp, "/dashboard")
}

func (suite *HandlersTestSuite) addExpense(client *http.Client, amount, category, note string) {
	resp, _ := suite.post(client, "/add-expense", url.Values{"amount": {amount}, "category": {category}, "note": {note}})
	suite.assertRedirect(resp, "/expenses")
}

func (suite *HandlersTestSuite) TestIndex() {
	resp, body := suite.get(suite.client, "/")
	assert.Equal(suite.T(), http.StatusOK, resp.StatusCode)
	assert.Contains(suite.T(), body, "Create an account")
}

func (suite *HandlersTestSuite) TestRegisterThenLoginPageShowsFlash() {
	suite.register(suite.client, "alice", "secret")

	_, body := suite.get(suite.client, "/login")
	assert.Contains(suite.T(), body, "Registration successful! Please login.")

	// Flashes are shown once
	_, body = suite.get(suite.client, "/login")
	assert.NotContains(suite.T(), body, "Registration successful!")
}

func (suite *HandlersTestSuite) TestRegisterDuplicate() {
	suite.register(suite.client, "alice", "secret")

	resp, body := suite.post(suite.client, "/register", url.Values{"username": {"alice"}, "password": {"other"}})
	assert.Equal(suite.T(), http.StatusOK, resp.StatusCode)
	assert.Contains(suite.T(), body, "Username already exists! Try another.")

	count, err := suite.db.UserCount(context.Background())
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), 1, count)
}

func (suite *HandlersTestSuite) TestRegisterMissingFields() {
	resp, body := suite.post(suite.client, "/register", url.Values{"username": {""}, "password": {"x"}})
	assert.Equal(suite.T(), http.StatusOK, resp.StatusCode)
	assert.Contains(suite.T(), body, "Username and password are required!")
}

func (suite *HandlersTestSuite) TestLoginFailures() {
	suite.register(suite.client, "alice", "secret")

	resp, body := suite.post(suite.client, "/login", url.Values{"username": {"alice"}, "password": {"wrong"}})
	assert.Equal(suite.T(), http.StatusOK, resp.StatusCode)
	assert.Contains(suite.T(), body, "Invalid password!")

	_, body = suite.post(suite.client, "/login", url.Values{"username": {"nobody"}, "password": {"secret"}})
	assert.Contains(suite.T(), body, "User not found!")

	resp, _ = suite.get(suite.client, "/dashboard")
	suite.assertRedirect(resp, "/login")
}

func (suite *HandlersTestSuite) TestProtectedRoutesRequireLogin() {
	for _, path := range []string{
		"/dashboard",
		"/add-expense",
		"/expenses",
		"/delete-expense/1",
		"/dashboard/charts/categories.png",
		"/dashboard/charts/months.png",
	} {
		client := suite.newClient()
		resp, _ := suite.get(client, path)
		suite.assertRedirect(resp, "/login")

		_, body := suite.get(client, "/login")
		assert.Contains(suite.T(), body, "Please login first!", path)
	}

	resp, _ := suite.post(suite.client, "/add-expense", url.Values{"amount": {"5"}, "category": {"food"}})
	suite.assertRedirect(resp, "/login")
}

func (suite *HandlersTestSuite) TestExportRequiresLoginWithoutFlash() {
	resp, _ := suite.get(suite.client, "/export")
	suite.assertRedirect(resp, "/login")

	_, body := suite.get(suite.client, "/login")
	assert.NotContains(suite.T(), body, "Please login first!")
}

func (suite *HandlersTestSuite) TestLoginFlowAndDashboard() {
	suite.register(suite.client, "alice", "secret")
	suite.login(suite.client, "alice", "secret")

	resp, body := suite.get(suite.client, "/dashboard")
	assert.Equal(suite.T(), http.StatusOK, resp.StatusCode)
	assert.Contains(suite.T(), body, "Welcome, alice")
	assert.Contains(suite.T(), body, "Login successful!")
	assert.Contains(suite.T(), body, "No expenses yet.")

	// Logged-in users skip the login form
	resp, _ = suite.get(suite.client, "/login")
	suite.assertRedirect(resp, "/dashboard")
}

func (suite *HandlersTestSuite) TestAddListAndDashboard() {
	suite.register(suite.client, "alice", "secret")
	suite.login(suite.client, "alice", "secret")

	suite.addExpense(suite.client, "10", "food", "Lunch")
	suite.addExpense(suite.client, "5", "food", "")
	suite.addExpense(suite.client, "20", "transport", "Taxi")

	resp, body := suite.get(suite.client, "/expenses")
	assert.Equal(suite.T(), http.StatusOK, resp.StatusCode)
	assert.Contains(suite.T(), body, "Expense added successfully!")
	assert.Contains(suite.T(), body, "Lunch")
	assert.Contains(suite.T(), body, "Taxi")
	assert.Contains(suite.T(), body, "TODAY")

	_, body = suite.get(suite.client, "/dashboard")
	assert.Contains(suite.T(), body, `<span class="value" id="total-spent">35.00</span>`)
	assert.Contains(suite.T(), body, `<span class="value" id="total-entries">3</span>`)

	_, body = suite.get(suite.client, "/dashboard?category=transport")
	assert.Contains(suite.T(), body, "Taxi")
	assert.NotContains(suite.T(), body, "Lunch")
	assert.Contains(suite.T(), body, `<span class="value" id="total-spent">35.00</span>`, "totals ignore the filter")
}

func (suite *HandlersTestSuite) TestAddExpenseInvalidInput() {
	suite.register(suite.client, "alice", "secret")
	suite.login(suite.client, "alice", "secret")

	resp, body := suite.post(suite.client, "/add-expense", url.Values{"amount": {"abc"}, "category": {"food"}})
	assert.Equal(suite.T(), http.StatusBadRequest, resp.StatusCode)
	assert.Contains(suite.T(), body, "Please enter a valid amount!")

	resp, body = suite.post(suite.client, "/add-expense", url.Values{"amount": {"4"}, "category": {" "}})
	assert.Equal(suite.T(), http.StatusBadRequest, resp.StatusCode)
	assert.Contains(suite.T(), body, "Please enter a category!")

	alice, err := suite.db.GetUserByUsername(context.Background(), "alice")
	require.NoError(suite.T(), err)
	count, err := suite.db.CountExpenses(context.Background(), alice.ID)
	require.NoError(suite.T(), err)
	assert.Zero(suite.T(), count)
}

func (suite *HandlersTestSuite) TestAddExpenseRerenderKeepsOwnCategories() {
	suite.register(suite.client, "alice", "secret")
	suite.login(suite.client, "alice", "secret")
	suite.addExpense(suite.client, "7", "bouldering", "")

	resp, body := suite.post(suite.client, "/add-expense", url.Values{"amount": {"abc"}, "category": {"food"}})
	assert.Equal(suite.T(), http.StatusBadRequest, resp.StatusCode)
	assert.Contains(suite.T(), body, `<option value="bouldering">`)
	assert.Contains(suite.T(), body, `<option value="food">`)

	resp, body = suite.post(suite.client, "/add-expense", url.Values{"amount": {"4"}, "category": {""}})
	assert.Equal(suite.T(), http.StatusBadRequest, resp.StatusCode)
	assert.Contains(suite.T(), body, `<option value="bouldering">`)
}

func (suite *HandlersTestSuite) TestRegisterWithLongPassword() {
	password := strings.Repeat("p", 80)
	suite.register(suite.client, "alice", password)
	suite.login(suite.client, "alice", password)

	resp, body := suite.post(suite.newClient(), "/login", url.Values{"username": {"alice"}, "password": {strings.Repeat("p", 79) + "q"}})
	assert.Equal(suite.T(), http.StatusOK, resp.StatusCode)
	assert.Contains(suite.T(), body, "Invalid password!")
}

func (suite *HandlersTestSuite) TestDeleteIsOwnerScoped() {
	suite.register(suite.client, "alice", "secret")
	suite.login(suite.client, "alice", "secret")
	suite.addExpense(suite.client, "10", "food", "Lunch")

	alice, err := suite.db.GetUserByUsername(context.Background(), "alice")
	require.NoError(suite.T(), err)
	list, err := suite.db.ListExpenses(context.Background(), alice.ID)
	require.NoError(suite.T(), err)
	require.Len(suite.T(), list, 1)
	path := "/delete-expense/" + strconv.FormatInt(list[0].ID, 10)

	bob := suite.newClient()
	suite.register(bob, "bob", "secret")
	suite.login(bob, "bob", "secret")
	resp, _ := suite.get(bob, path)
	suite.assertRedirect(resp, "/expenses")

	count, err := suite.db.CountExpenses(context.Background(), alice.ID)
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), 1, count, "bob must not delete alice's expense")

	resp, _ = suite.get(suite.client, path)
	suite.assertRedirect(resp, "/expenses")
	_, body := suite.get(suite.client, "/expenses")
	assert.Contains(suite.T(), body, "Expense deleted successfully!")
	assert.NotContains(suite.T(), body, "Lunch")

	resp, _ = suite.get(suite.client, "/delete-expense/abc")
	assert.Equal(suite.T(), http.StatusNotFound, resp.StatusCode)
}

func (suite *HandlersTestSuite) TestExportCSV() {
	suite.register(suite.client, "alice", "secret")
	suite.login(suite.client, "alice", "secret")
	suite.addExpense(suite.client, "10", "food", "Lunch, with \"friends\"")
	suite.addExpense(suite.client, "2.5", "transport", "")

	resp, body := suite.get(suite.client, "/export")
	assert.Equal(suite.T(), http.StatusOK, resp.StatusCode)
	assert.Equal(suite.T(), "text/csv; charset=utf-8", resp.Header.Get("Content-Type"))
	assert.Equal(suite.T(), `attachment; filename="expenses.csv"`, resp.Header.Get("Content-Disposition"))

	records, err := csv.NewReader(strings.NewReader(body)).ReadAll()
	require.NoError(suite.T(), err)
	require.Len(suite.T(), records, 3)
	assert.Equal(suite.T(), []string{"Date", "Amount", "Category", "Note"}, records[0])
	assert.Equal(suite.T(), "2.5", records[1][1])
	assert.Equal(suite.T(), "Lunch, with \"friends\"", records[2][3])
}

func (suite *HandlersTestSuite) TestCharts() {
	suite.register(suite.client, "alice", "secret")
	suite.login(suite.client, "alice", "secret")

	resp, _ := suite.get(suite.client, "/dashboard/charts/categories.png")
	assert.Equal(suite.T(), http.StatusNoContent, resp.StatusCode)

	suite.addExpense(suite.client, "10", "food", "")
	suite.addExpense(suite.client, "20", "transport", "")

	for _, path := range []string{"/dashboard/charts/categories.png", "/dashboard/charts/months.png"} {
		resp, body := suite.get(suite.client, path)
		assert.Equal(suite.T(), http.StatusOK, resp.StatusCode, path)
		assert.Equal(suite.T(), "image/png", resp.Header.Get("Content-Type"), path)
		assert.True(suite.T(), strings.HasPrefix(body, "\x89PNG"), path)
	}
}

func (suite *HandlersTestSuite) TestLogout() {
	suite.register(suite.client, "alice", "secret")
	suite.login(suite.client, "alice", "secret")

	resp, _ := suite.get(suite.client, "/logout")
	suite.assertRedirect(resp, "/")

	_, body := suite.get(suite.client, "/")
	assert.Contains(suite.T(), body, "Logged out successfully!")

	resp, _ = suite.get(suite.client, "/dashboard")
	suite.assertRedirect(resp, "/login")

	// Logging out again is harmless
	resp, _ = suite.get(suite.client, "/logout")
	suite.assertRedirect(resp, "/")
}

func (suite *HandlersTestSuite) TestTamperedSessionCookie() {
	u, err := url.Parse(suite.server.URL)
	require.NoError(suite.T(), err)
	suite.client.Jar.SetCookies(u, []*http.Cookie{{Name: SessionCookieName, Value: "forged.token.value", Path: "/"}})

	resp, _ := suite.get(suite.client, "/dashboard")
	suite.assertRedirect(resp, "/login")
}

func (suite *HandlersTestSuite) TestSessionsAreIsolated() {
	suite.register(suite.client, "alice", "secret")
	suite.login(suite.client, "alice", "secret")
	suite.addExpense(suite.client, "99", "rent", "Alice's rent")

	bob := suite.newClient()
	suite.register(bob, "bob", "secret")
	suite.login(bob, "bob", "secret")

	_, body := suite.get(bob, "/expenses")
	assert.NotContains(suite.T(), body, "99.00")
	_, body = suite.get(bob, "/export")
	assert.Equal(suite.T(), "Date,Amount,Category,Note\n", body)
}

func TestHandlersSuite(t *testing.T) {
	suite.Run(t, new(HandlersTestSuite))
}
