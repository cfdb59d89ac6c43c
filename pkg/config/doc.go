// Package config loads mockhandler settings for the command line.
//
// Settings come from three layers, later ones winning: DefaultConfig, a
// YAML or JSON file (by extension), and MOCKHANDLER_* environment variables.
//
//	mocksPort: 9000
//	mocksHttpsPort: 9443
//	keyFile: certs/server.key
//	certFile: certs/server.crt
//	log:
//	  level: debug
//	mockServerOptions:
//	  routes:
//	    cors:
//	      credentials: true
//	plugin:
//	  name: api
//	  routes:
//	    - method: GET
//	      path: /users/{id}
//	      body: '{"id":"1"}'
//	      headers:
//	        Content-Type: application/json
//
// Environment overrides: MOCKHANDLER_MOCKS_PORT, MOCKHANDLER_MOCKS_HTTPS_PORT,
// MOCKHANDLER_KEY_FILE, MOCKHANDLER_CERT_FILE, MOCKHANDLER_LOG_LEVEL,
// MOCKHANDLER_LOG_FORMAT.
package config
