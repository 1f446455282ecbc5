package project

import "sort"

// Template is a predefined project scaffold: a set of files relative to the
// project root.
type Template struct {
	DisplayName string
	Description string
	Files       map[string]string
}

var templates = map[string]Template{
	"node-express-api": {
		DisplayName: "Node.js Express API",
		Description: "Minimal Express REST API with a health endpoint and npm scripts",
		Files: map[string]string{
			"package.json": `{
  "name": "express-api",
  "version": "0.1.0",
  "description": "Express REST API",
  "main": "src/index.js",
  "scripts": {
    "start": "node src/index.js",
    "dev": "nodemon src/index.js",
    "test": "jest"
  },
  "dependencies": {
    "express": "^4.19.0"
  },
  "devDependencies": {
    "jest": "^29.7.0",
    "nodemon": "^3.1.0"
  }
}
`,
			"src/index.js": `const express = require('express');

const app = express();
const port = process.env.PORT || 3000;

app.use(express.json());

app.get('/health', (req, res) => {
  res.json({ status: 'ok' });
});

app.listen(port, () => {
  console.log('listening on port ' + port);
});
`,
			"README.md": `# Express API

## Getting started

    npm install
    npm run dev

Health check: GET /health
`,
			".gitignore": "node_modules/\n.env\ndist/\n",
		},
	},
	"python-fastapi": {
		DisplayName: "Python FastAPI",
		Description: "FastAPI application with a health endpoint and pytest setup",
		Files: map[string]string{
			"requirements.txt": "fastapi>=0.110\nuvicorn[standard]>=0.29\npytest>=8.0\nhttpx>=0.27\n",
			"main.py": `from fastapi import FastAPI

app = FastAPI()


@app.get("/health")
def health():
    return {"status": "ok"}
`,
			"test_main.py": `from fastapi.testclient import TestClient

from main import app

client = TestClient(app)


def test_health():
    response = client.get("/health")
    assert response.status_code == 200
    assert response.json() == {"status": "ok"}
`,
			"README.md": `# FastAPI Service

## Getting started

    pip install -r requirements.txt
    uvicorn main:app --reload

Health check: GET /health
`,
			".gitignore": "__pycache__/\nvenv/\n.env\n*.egg-info/\n",
		},
	},
	"go-api": {
		DisplayName: "Go HTTP API",
		Description: "Standard-library Go HTTP server with a health endpoint",
		Files: map[string]string{
			"go.mod": "module example.com/api\n\ngo 1.24\n",
			"main.go": `package main

import (
	"encoding/json"
	"log"
	"net/http"
	"os"
)

func main() {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	addr := ":" + port
	log.Printf("listening on %s", addr)
	log.Fatal(http.ListenAndServe(addr, mux))
}
`,
			"README.md": `# Go API

## Getting started

    go run .

Health check: GET /health
`,
			".gitignore": "bin/\n.env\n",
		},
	},
	"static-site": {
		DisplayName: "Static Site",
		Description: "Plain HTML, CSS, and JavaScript site with no build step",
		Files: map[string]string{
			"index.html": `<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="UTF-8">
  <meta name="viewport" content="width=device-width, initial-scale=1.0">
  <title>Static Site</title>
  <link rel="stylesheet" href="styles.css">
</head>
<body>
  <header>
    <h1>Static Site</h1>
  </header>
  <main id="content">
    <p>Edit index.html to get started.</p>
  </main>
  <script src="script.js"></script>
</body>
</html>
`,
			"styles.css": `:root {
  font-family: system-ui, sans-serif;
}

body {
  margin: 0 auto;
  max-width: 60rem;
  padding: 1rem;
}
`,
			"script.js": `document.addEventListener('DOMContentLoaded', () => {
  console.log('ready');
});
`,
			"README.md": "# Static Site\n\nOpen index.html in a browser, or serve the directory:\n\n    npx serve .\n",
		},
	},
}

// TemplateNames returns the available template names, sorted.
func TemplateNames() []string {
	names := make([]string, 0, len(templates))
	for name := range templates {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
