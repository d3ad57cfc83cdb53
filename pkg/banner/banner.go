package banner

import (
	"fmt"
)

const banner = `
██╗   ██╗ ██████╗ ██╗  ██╗██████╗
██║   ██║██╔═══██╗╚██╗██╔╝██╔══██╗
██║   ██║██║   ██║ ╚███╔╝ ██║  ██║
╚██╗ ██╔╝██║   ██║ ██╔██╗ ██║  ██║
 ╚████╔╝ ╚██████╔╝██╔╝ ██╗██████╔╝
  ╚═══╝   ╚═════╝ ╚═╝  ╚═╝╚═════╝
`

// Print shows the startup banner with the effective runtime settings.
func Print(addr, dbPath, sources, version string, canSpeak, canListen bool) {
	fmt.Print(banner)
	fmt.Println("== Config =====================================================")
	fmt.Printf("Listen:   %s\n", addr)
	fmt.Printf("DB Path:  %s\n", dbPath)
	if version != "" {
		fmt.Printf("Version:  %s\n", version)
	}
	if sources != "" {
		fmt.Printf("Config sources: %s\n", sources)
	}
	fmt.Printf("Speech:   synthesis=%v recognition=%v\n", canSpeak, canListen)
	fmt.Println("\n== Endpoints ==================================================")
	fmt.Println("POST /v1/auth/register            - Register a user")
	fmt.Println("POST /v1/auth/login               - Sign in, returns identity signature")
	fmt.Println("GET  /v1/sessions                 - List chat sessions")
	fmt.Println("POST /v1/sessions                 - Start a new chat")
	fmt.Println("POST /v1/sessions/{id}/messages   - Send a message (add ?stream=1 for SSE)")
	fmt.Println("\n== Examples ===================================================")
	fmt.Printf("curl -X POST 'http://localhost%s/v1/sessions'\n", addr)
	fmt.Printf("curl -X POST 'http://localhost%s/v1/sessions/<id>/messages' -d '{\"content\":\"hello\"}'\n", addr)
}
