// Command docsense indexes a directory of documents and answers ranked
// free-text queries against it, from the terminal or over HTTP.
//
// Usage:
//
//	docsense index  [-stemmer name] <dir> [save-path]
//	docsense search [-method tfidf|bm25] [-stemmer name] <index-file> <prompt>
//	docsense check  [index-file]
//	docsense serve  [-method tfidf|bm25] [-config path] <dir> [address]
package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/docsense/docsense/internal/extract"
	"github.com/docsense/docsense/internal/indexer"
	"github.com/docsense/docsense/internal/lexer"
	"github.com/docsense/docsense/internal/model"
	"github.com/docsense/docsense/internal/rank"
	"github.com/docsense/docsense/internal/store"
	"github.com/docsense/docsense/pkg/logger"
	"github.com/docsense/docsense/pkg/metrics"
)

const defaultIndexFile = "index.json"

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("62"))
	pathStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("39"))
	scoreStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	errStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("196"))
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	var err error
	switch os.Args[1] {
	case "index":
		err = runIndex(os.Args[2:])
	case "search":
		err = runSearch(os.Args[2:])
	case "check":
		err = runCheck(os.Args[2:])
	case "serve":
		err = runServe(os.Args[2:])
	case "help", "-h", "--help":
		usage()
		return
	default:
		fmt.Fprintln(os.Stderr, errStyle.Render("unknown subcommand: "+os.Args[1]))
		usage()
		os.Exit(2)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, errStyle.Render("error: ")+err.Error())
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, titleStyle.Render("docsense")+" - local document search engine")
	fmt.Fprintln(os.Stderr, `
  docsense index  [-stemmer name] <dir> [save-path]
        index <dir> and persist to save-path (default `+defaultIndexFile+`;
        a .db or .sqlite path selects the relational backend)
  docsense search [-method tfidf|bm25] [-stemmer name] <index-file> <prompt>
        print the 20 best matches for <prompt>
  docsense check  [index-file]
        report how many documents an index holds
  docsense serve  [-method tfidf|bm25] [-config path] <dir> [address]
        index <dir> in the background and serve the query API
        (default address 127.0.0.1:6969)`)
}

// openBackend picks the storage backend from the index file's extension.
func openBackend(path string, stemmer lexer.Stemmer) (model.Backend, error) {
	if isRelational(path) {
		return store.Open(path, stemmer)
	}
	ix, err := model.LoadSnapshotFile(path)
	if err != nil {
		return nil, err
	}
	ix.SetStemmer(stemmer)
	return ix, nil
}

func isRelational(path string) bool {
	return strings.HasSuffix(path, ".db") || strings.HasSuffix(path, ".sqlite")
}

func runIndex(args []string) error {
	fs := flag.NewFlagSet("index", flag.ExitOnError)
	stemmerName := fs.String("stemmer", "none", "stemming strategy: none, porter, snowball")
	logLevel := fs.String("log-level", "info", "log level")
	fs.Parse(args)
	if fs.NArg() < 1 {
		return fmt.Errorf("usage: docsense index [-stemmer name] <dir> [save-path]")
	}
	dir := fs.Arg(0)
	savePath := defaultIndexFile
	if fs.NArg() > 1 {
		savePath = fs.Arg(1)
	}

	logger.Setup(*logLevel, "text")
	stemmer, err := lexer.StemmerByName(*stemmerName)
	if err != nil {
		return err
	}

	var backend model.Backend
	if isRelational(savePath) {
		backend, err = store.Open(savePath, stemmer)
		if err != nil {
			return err
		}
	} else {
		backend = model.NewIndex(stemmer)
	}
	defer backend.Close()

	ix := indexer.New(indexer.BackendTarget(backend), extract.NewRegistry(), metrics.New())
	processed, err := ix.IndexDirectory(dir)
	if err != nil {
		return err
	}

	if memIndex, ok := backend.(*model.Index); ok {
		data, err := memIndex.MarshalSnapshot()
		if err != nil {
			return err
		}
		if err := model.WriteSnapshotFile(savePath, data); err != nil {
			return err
		}
	}

	stats, err := backend.Stats()
	if err != nil {
		return err
	}
	fmt.Printf("%s %d documents processed, %d indexed, %d unique terms -> %s\n",
		titleStyle.Render("done:"), processed, stats.DocumentCount, stats.UniqueTermCount, savePath)
	return nil
}

func runSearch(args []string) error {
	fs := flag.NewFlagSet("search", flag.ExitOnError)
	methodName := fs.String("method", "tfidf", "rank method: tfidf or bm25")
	stemmerName := fs.String("stemmer", "none", "stemming strategy used when the index was built")
	fs.Parse(args)
	if fs.NArg() < 2 {
		return fmt.Errorf("usage: docsense search [-method tfidf|bm25] [-stemmer name] <index-file> <prompt>")
	}
	indexFile, prompt := fs.Arg(0), fs.Arg(1)

	logger.Setup("warn", "text")
	method, err := rank.ParseMethod(*methodName)
	if err != nil {
		return err
	}
	stemmer, err := lexer.StemmerByName(*stemmerName)
	if err != nil {
		return err
	}

	backend, err := openBackend(indexFile, stemmer)
	if err != nil {
		return err
	}
	defer backend.Close()

	results, err := backend.Search([]rune(prompt), method)
	if err != nil {
		return err
	}
	if len(results) > 20 {
		results = results[:20]
	}

	fmt.Println(titleStyle.Render(fmt.Sprintf("top %d results for %q (%s)", len(results), prompt, method)))
	for _, result := range results {
		fmt.Printf("  %s %s\n",
			pathStyle.Render(result.Path),
			scoreStyle.Render(fmt.Sprintf("%.6f", result.Score)))
	}
	return nil
}

func runCheck(args []string) error {
	fs := flag.NewFlagSet("check", flag.ExitOnError)
	fs.Parse(args)
	indexFile := defaultIndexFile
	if fs.NArg() > 0 {
		indexFile = fs.Arg(0)
	}

	logger.Setup("warn", "text")
	backend, err := openBackend(indexFile, lexer.Noop{})
	if err != nil {
		return err
	}
	defer backend.Close()

	stats, err := backend.Stats()
	if err != nil {
		return err
	}
	fmt.Printf("%s contains %s documents and %s unique terms\n",
		pathStyle.Render(indexFile),
		titleStyle.Render(fmt.Sprintf("%d", stats.DocumentCount)),
		titleStyle.Render(fmt.Sprintf("%d", stats.UniqueTermCount)))
	return nil
}
