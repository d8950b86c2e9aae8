package main_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/exec"
	"syscall"
	"testing"
	"time"

	"github.com/joho/godotenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	testAppBinary         = "./carmarket_test_app"
	testAppPort           = "8089"
	testServiceApiPortApi = "8091"
	testServiceApiPortBg  = "8092"
	testDbName            = "carmarket_integration"
	testAppURL            = "http://localhost:" + testAppPort
	testServiceApiURL     = "http://localhost:" + testServiceApiPortApi
	startupTimeout        = 15 * time.Second
	pingEndpoint          = testAppURL + "/api/ping"
)

func stopProcess(name string, cmd *exec.Cmd) {
	log.Printf("Sending SIGTERM to %s...", name)
	if err := cmd.Process.Signal(syscall.SIGTERM); err != nil {
		log.Printf("Failed to send SIGTERM to %s: %v. Killing.", name, err)
		_ = cmd.Process.Kill()
		return
	}
	if _, err := cmd.Process.Wait(); err != nil {
		log.Printf("Error waiting for %s exit: %v", name, err)
	}
}

func dropTestDatabase(uri string) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		log.Printf("Integration Test Teardown: connect for cleanup failed: %v", err)
		return
	}
	defer client.Disconnect(ctx)
	if err := client.Database(testDbName).Drop(ctx); err != nil {
		log.Printf("Integration Test Teardown: drop %s failed: %v", testDbName, err)
	}
}

// TestMain builds the binary and runs an API process and a worker process
// against a throwaway database. Skipped when no MongoDB is configured.
func TestMain(m *testing.M) {
	godotenv.Load()
	mongoURI := os.Getenv("MONGO_URI_TEST")
	if mongoURI == "" {
		mongoURI = os.Getenv("MONGO_URI")
	}
	if mongoURI == "" {
		log.Println("MONGO_URI_TEST/MONGO_URI not set, skipping integration tests.")
		return
	}

	defer func() { _ = os.Remove(testAppBinary) }()

	buildCmd := exec.Command("go", "build", "-o", testAppBinary, ".")
	if out, err := buildCmd.CombinedOutput(); err != nil {
		log.Printf("Failed to build application: %v\nOutput:\n%s", err, string(out))
		return
	}
	defer dropTestDatabase(mongoURI)

	commonEnv := []string{
		"MONGO_URI="+mongoURI,
		"MONGO_DB_NAME="+testDbName,
		"JWT_SECRET=integration-test-secret",
		"GIN_MODE=release",
		"MOCK_SERVICES=true",
		"REDIS_ADDR=localhost:6379",
		"SMTP_HOST=",
		"AWS_S3_BUCKET=",
		"SMTP_FROM_ADDRESS=test@example.com",
	}

	processEnv := func(extra ...string) []string {
		env := append([]string{}, os.Environ()...)
		env = append(env, commonEnv...)
		return append(env, extra...)
	}

	apiCmd := exec.Command(testAppBinary, "-m", "api")
	apiCmd.Env = processEnv(
		"API_PORT="+testAppPort,
		"SERVICE_API_PORT="+testServiceApiPortApi,
		"RATE_LIMIT_SOFT_BUCKET_SIZE=100",
		"RATE_LIMIT_SOFT_REFILL_RATE=100",
		"RATE_LIMIT_HARD_BUCKET_SIZE=200",
		"RATE_LIMIT_HARD_REFILL_RATE=200",
	)
	apiCmd.Stderr, apiCmd.Stdout = os.Stderr, os.Stdout
	if err := apiCmd.Start(); err != nil {
		log.Printf("Failed to start API process: %v", err)
		return
	}
	defer stopProcess("API process", apiCmd)

	bgCmd := exec.Command(testAppBinary, "-m", "bg")
	bgCmd.Env = processEnv("SERVICE_API_PORT=" + testServiceApiPortBg)
	bgCmd.Stderr, bgCmd.Stdout = os.Stderr, os.Stdout
	if err := bgCmd.Start(); err != nil {
		log.Printf("Failed to start background worker: %v", err)
		return
	}
	defer stopProcess("background worker", bgCmd)

	ready := false
	for start := time.Now(); time.Since(start) < startupTimeout; {
		resp, err := http.Get(pingEndpoint)
		if err == nil {
			body, _ := io.ReadAll(resp.Body)
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK && string(body) == "pong" {
				ready = true
				break
			}
		}
		time.Sleep(200 * time.Millisecond)
	}
	if !ready {
		log.Printf("Application failed to start within %v", startupTimeout)
		return
	}
	// Give the worker a moment to connect to Redis.
	time.Sleep(2 * time.Second)

	exitCode := m.Run()
	log.Printf("Integration Test Teardown: tests finished with exit code %d.", exitCode)
}

func doRequest(t *testing.T, method, path, token string, body any) (int, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, testAppURL+path, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var out map[string]any
	raw, _ := io.ReadAll(resp.Body)
	_ = json.Unmarshal(raw, &out)
	return resp.StatusCode, out
}

// signupAndLogin registers a fresh user and returns its id and token.
func signupAndLogin(t *testing.T, name string) (id, email, token string) {
	t.Helper()
	nonce := time.Now().UnixNano()
	email = fmt.Sprintf("%s_%d@example.com", name, nonce)
	status, body := doRequest(t, http.MethodPost, "/api/users/auth/signup", "", map[string]string{
		"name":        name,
		"email":       email,
		"phoneNumber": fmt.Sprintf("03%d", nonce),
		"password":    "password123",
	})
	require.Equal(t, http.StatusCreated, status, "signup: %v", body)

	status, body = doRequest(t, http.MethodPost, "/api/users/auth/login", "", map[string]string{"email": email, "password": "password123"})
	require.Equal(t, http.StatusOK, status, "login: %v", body)
	user := body["user"].(map[string]any)
	return user["_id"].(string), email, body["token"].(string)
}

// getEmailFromServiceAPI polls the mock mailbox through the service API.
func getEmailFromServiceAPI(t *testing.T, topic, to string) map[string]any {
	t.Helper()
	payload, _ := json.Marshal(map[string]any{"method": "getTestEmail", "arguments": []string{topic, to}})
	for attempt := 0; attempt < 3; attempt++ {
		resp, err := http.Post(testServiceApiURL+"/api", "application/json", bytes.NewReader(payload))
		require.NoError(t, err)
		var out map[string]any
		_ = json.NewDecoder(resp.Body).Decode(&out)
		resp.Body.Close()
		if resp.StatusCode == http.StatusOK {
			return out["data"].(map[string]any)
		}
	}
	t.Fatalf("no %s email for %s", topic, to)
	return nil
}

func TestIntegration_Ping(t *testing.T) {
	resp, err := http.Get(pingEndpoint)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "pong", string(body))
}

func TestIntegration_RentalLifecycle(t *testing.T) {
	ownerID, ownerEmail, ownerToken := signupAndLogin(t, "owner")
	renterID, renterEmail, renterToken := signupAndLogin(t, "renter")
	_, _, strangerToken := signupAndLogin(t, "stranger")

	status, body := doRequest(t, http.MethodPost, "/api/cars", ownerToken, map[string]any{
		"ownerId":     ownerID,
		"title":       "Toyota Corolla 2020",
		"location":    "Karachi",
		"pricePerDay": 50,
		"images":      []string{"https://img.example.com/corolla.jpg"},
		"isForRent":   true,
	})
	require.Equal(t, http.StatusCreated, status, "create car: %v", body)
	carID := body["car"].(map[string]any)["_id"].(string)

	newRental := func(token, start, end string) (int, map[string]any) {
		return doRequest(t, http.MethodPost, "/api/rentals", token, map[string]any{
			"renterId":   renterID,
			"carId":      carID,
			"startDate":  start,
			"endDate":    end,
			"totalPrice": 250,
		})
	}

	// Someone else cannot book in the renter's name.
	status, _ = newRental(strangerToken, "2031-03-01", "2031-03-06")
	assert.Equal(t, http.StatusForbidden, status)

	status, body = newRental(renterToken, "2031-03-01", "2031-03-06")
	require.Equal(t, http.StatusCreated, status, "create rental: %v", body)
	first := body["rentalRequest"].(map[string]any)
	assert.Equal(t, "pending", first["status"])
	assert.Equal(t, ownerID, first["ownerId"])
	rentalID := first["_id"].(string)

	requested := getEmailFromServiceAPI(t, "rental_requested", ownerEmail)
	assert.Contains(t, requested["body"], "Toyota Corolla 2020")

	// Only the owner approves.
	status, _ = doRequest(t, http.MethodPut, "/api/rentals/"+rentalID, renterToken, map[string]string{"status": "approved"})
	assert.Equal(t, http.StatusForbidden, status)
	status, body = doRequest(t, http.MethodPut, "/api/rentals/"+rentalID, ownerToken, map[string]string{"status": "approved"})
	require.Equal(t, http.StatusOK, status, "approve: %v", body)
	assert.Equal(t, "approved", body["updatedRental"].(map[string]any)["status"])

	approvedMail := getEmailFromServiceAPI(t, "rental_status", renterEmail)
	assert.Contains(t, approvedMail["body"], "approved")

	// Approving again is a no-op; going back is not allowed.
	status, _ = doRequest(t, http.MethodPut, "/api/rentals/"+rentalID, ownerToken, map[string]string{"status": "approved"})
	assert.Equal(t, http.StatusOK, status)
	status, _ = doRequest(t, http.MethodPut, "/api/rentals/"+rentalID, ownerToken, map[string]string{"status": "pending"})
	assert.Equal(t, http.StatusConflict, status)

	// Overlapping dates are rejected, back-to-back dates are fine.
	status, body = newRental(renterToken, "2031-03-04", "2031-03-08")
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "Car is already rented during the selected dates", body["message"])
	status, _ = newRental(renterToken, "2031-03-06", "2031-03-09")
	assert.Equal(t, http.StatusCreated, status)

	status, body = doRequest(t, http.MethodGet, "/api/rentals/received/"+ownerID, ownerToken, nil)
	require.Equal(t, http.StatusOK, status)
	received := body["rentals"].([]any)
	assert.Len(t, received, 2)

	status, _ = doRequest(t, http.MethodGet, "/api/rentals/"+renterID, strangerToken, nil)
	assert.Equal(t, http.StatusForbidden, status)

	// Reviews in both directions.
	rating := 5
	status, body = doRequest(t, http.MethodPost, "/api/review", renterToken, map[string]any{
		"reviewerId": renterID,
		"reviewedId": ownerID,
		"carId":      carID,
		"rentalId":   rentalID,
		"rating":     rating,
		"comment":    "Smooth pickup",
		"reviewType": "car",
	})
	require.Equal(t, http.StatusCreated, status, "car review: %v", body)

	status, _ = doRequest(t, http.MethodPost, "/api/review", renterToken, map[string]any{
		"reviewerId": renterID,
		"reviewedId": renterID,
		"rentalId":   rentalID,
		"rating":     rating,
		"reviewType": "renter",
	})
	assert.Equal(t, http.StatusForbidden, status)

	status, body = doRequest(t, http.MethodGet, "/api/review/car/"+carID, "", nil)
	require.Equal(t, http.StatusOK, status)
	reviews := body["reviews"].([]any)
	require.Len(t, reviews, 1)
	assert.Equal(t, "renter", reviews[0].(map[string]any)["reviewer"].(map[string]any)["name"])
}
