//go:build e2e

package gateway_test

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"testing"
	"time"

	"github.com/aussiebroadwan/nearbynurse/pkg/authsdk"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/network"
	"github.com/testcontainers/testcontainers-go/wait"
)

/*
 * Shared setup for the gateway end-to-end tests: one Keycloak container with
 * an imported realm and one gateway container on the same network.
 */

const (
	testImageName  = "nearbynurse-gateway-test:latest"
	keycloakImage  = "quay.io/keycloak/keycloak:26.0"
	keycloakAlias  = "keycloak"
	realm          = "nearbynurse"
	kcAdminUser    = "admin"
	kcAdminPass    = "admin"
	nurseUsername  = "nurse.joy"
	nursePassword  = "Nurse123!"
	opsUsername    = "ops"
	opsPassword    = "Ops123!"
	frontendClient = "nearbynurse-frontend"
)

// realmJSON is imported by Keycloak at startup.
var realmJSON = fmt.Sprintf(`{
  "realm": %[1]q,
  "enabled": true,
  "roles": {"realm": [{"name": "user"}, {"name": "admin"}]},
  "clients": [{
    "clientId": %[2]q,
    "publicClient": true,
    "directAccessGrantsEnabled": true,
    "standardFlowEnabled": false
  }],
  "users": [
    {
      "username": %[3]q, "email": "joy@example.com", "enabled": true, "emailVerified": true,
      "firstName": "Joy", "lastName": "Nurse",
      "credentials": [{"type": "password", "value": %[4]q, "temporary": false}],
      "realmRoles": ["user"]
    },
    {
      "username": %[5]q, "email": "ops@example.com", "enabled": true, "emailVerified": true,
      "firstName": "Ops", "lastName": "Team",
      "credentials": [{"type": "password", "value": %[6]q, "temporary": false}],
      "realmRoles": ["user", "admin"]
    }
  ]
}`, realm, frontendClient, nurseUsername, nursePassword, opsUsername, opsPassword)

// gatewayURL is set by TestMain.
var gatewayURL string

// TestMain builds the gateway image and starts Keycloak plus the gateway
// once for the whole package.
func TestMain(m *testing.M) {
	ctx := context.Background()

	fmt.Fprintf(os.Stdout, "Building gateway Docker image...")
	if err := buildDockerImage(); err != nil {
		fmt.Fprintf(os.Stderr, "\nFailed to build Docker image: %v\n", err)
		os.Exit(1)
	}
	fmt.Fprintf(os.Stdout, " done\n")

	url, cleanup, err := startStack(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to start containers: %v\n", err)
		cleanup()
		cleanupDockerImage()
		os.Exit(1)
	}
	gatewayURL = url

	exitCode := m.Run()

	cleanup()
	fmt.Fprintf(os.Stdout, "Cleaning up gateway Docker image...")
	cleanupDockerImage()
	fmt.Fprintf(os.Stdout, " done\n")

	os.Exit(exitCode)
}

func buildDockerImage() error {
	cmd := exec.CommandContext(context.Background(), "docker", "build",
		"-t", testImageName,
		"-f", "../../../cmd/gateway/Dockerfile",
		"../../../")
	cmd.Stdout = os.Stdout
	return cmd.Run()
}

func cleanupDockerImage() {
	_ = exec.CommandContext(context.Background(), "docker", "rmi", "-f", testImageName).Run()
}

// startStack returns the gateway's base URL. cleanup is always safe to call.
func startStack(ctx context.Context) (string, func(), error) {
	var terminate []func()
	cleanup := func() {
		for i := len(terminate) - 1; i >= 0; i-- {
			terminate[i]()
		}
	}

	nw, err := network.New(ctx)
	if err != nil {
		return "", cleanup, fmt.Errorf("create network: %w", err)
	}
	terminate = append(terminate, func() { _ = nw.Remove(ctx) })

	kc, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:          keycloakImage,
			Cmd:            []string{"start-dev", "--import-realm"},
			ExposedPorts:   []string{"8080/tcp"},
			Networks:       []string{nw.Name},
			NetworkAliases: map[string][]string{nw.Name: {keycloakAlias}},
			Env: map[string]string{
				"KC_BOOTSTRAP_ADMIN_USERNAME": kcAdminUser,
				"KC_BOOTSTRAP_ADMIN_PASSWORD": kcAdminPass,
			},
			Files: []testcontainers.ContainerFile{{
				Reader:            strings.NewReader(realmJSON),
				ContainerFilePath: "/opt/keycloak/data/import/" + realm + ".json",
				FileMode:          0o644,
			}},
			WaitingFor: wait.ForHTTP("/realms/" + realm).
				WithPort("8080/tcp").
				WithStartupTimeout(3 * time.Minute),
		},
		Started: true,
	})
	if err != nil {
		return "", cleanup, fmt.Errorf("start keycloak: %w", err)
	}
	terminate = append(terminate, func() { _ = kc.Terminate(ctx) })

	gw, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        testImageName,
			ExposedPorts: []string{"8080/tcp"},
			Networks:     []string{nw.Name},
			Env: map[string]string{
				"KEYCLOAK_URL":            "http://" + keycloakAlias + ":8080",
				"KEYCLOAK_REALM":          realm,
				"KEYCLOAK_CLIENT_ID":      frontendClient,
				"KEYCLOAK_ADMIN_USERNAME": kcAdminUser,
				"KEYCLOAK_ADMIN_PASSWORD": kcAdminPass,
				"ENV":                     "test",
				"LOG_LEVEL":               "info",
				"LOG_FORMAT":              "json",
				// The whole suite shares one client address.
				"RATELIMIT_STRICT_REQUESTS":   "1000",
				"RATELIMIT_STRICT_BURST":      "1000",
				"RATELIMIT_MODERATE_REQUESTS": "1000",
				"RATELIMIT_MODERATE_BURST":    "1000",
			},
			WaitingFor: wait.ForHTTP("/readyz").
				WithPort("8080/tcp").
				WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		return "", cleanup, fmt.Errorf("start gateway: %w", err)
	}
	terminate = append(terminate, func() { _ = gw.Terminate(ctx) })

	host, err := gw.Host(ctx)
	if err != nil {
		return "", cleanup, err
	}
	port, err := gw.MappedPort(ctx, "8080")
	if err != nil {
		return "", cleanup, err
	}
	return fmt.Sprintf("http://%s:%s", host, port.Port()), cleanup, nil
}

func newClient() *authsdk.Client {
	return authsdk.NewClient(gatewayURL)
}

// login returns an access token or fails the test.
func login(t *testing.T, username, password string) *authsdk.TokenResponse {
	t.Helper()
	tok, err := newClient().Login(t.Context(), username, password)
	require.NoError(t, err)
	require.NotEmpty(t, tok.AccessToken)
	return tok
}

// uniqueName keeps registrations from colliding across runs of a test.
func uniqueName(prefix string) string {
	return fmt.Sprintf("%s-%d", prefix, time.Now().UnixNano())
}
