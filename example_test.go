package pakfetch_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"

	"github.com/adamwoolhether/pakfetch"
	"github.com/adamwoolhether/pakfetch/manifest"
)

func ExampleRun() {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "a")
	}))
	defer ts.Close()

	dir, err := os.MkdirTemp("", "pakfetch-example")
	if err != nil {
		fmt.Println("error:", err)
		return
	}
	defer os.RemoveAll(dir)

	m, err := manifest.New([]manifest.Entry{{
		ID:   "a",
		Path: filepath.Join(dir, "a.pak"),
		Hash: "0cc175b9c0f1b6a831c399e269772661",
		Size: 1,
		URL:  ts.URL + "/a.pak",
	}})
	if err != nil {
		fmt.Println("error:", err)
		return
	}

	report, err := pakfetch.Run(context.Background(), m, pakfetch.WithConcurrency(1))
	if err != nil {
		fmt.Println("error:", err)
		return
	}

	fmt.Println(report.Entries, report.Downloaded)
	// Output: 1 1
}
