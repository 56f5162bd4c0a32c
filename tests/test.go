// test is a black-box test runner for the katss command: it reads a
// list of subcommand invocations and expected outputs from tests.toml,
// runs each (each Test's Command is typically "go run ../cmd/katss"
// split across Command/Opts), captures stdout, and diffs it against
// the bundled golden file.
//
// To run the tests:
//
//	go run test.go
//
// Grounded on the teacher's tests/test.go Test{Name,Base,Command,Opts,
// Args,Files} shape and TOML-fixture/snappy-aware compare() helper,
// adapted to capture a subcommand's stdout (katss prints results, it
// does not write output files) instead of diffing files the command
// wrote itself.
package main

import (
	"bufio"
	"fmt"
	"io"
	"io/ioutil"
	"log"
	"os"
	"os/exec"
	"path"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/golang/snappy"
)

var logger *log.Logger

// Test describes one katss invocation: run Command with Opts and Args
// (each Args entry joined under Base), capture stdout to Stdout (also
// under Base), then diff it against every (actual, expected) pair in
// Files.
type Test struct {
	Name    string
	Base    string
	Command string
	Opts    []string
	Args    []string
	Stdout  string
	Files   [][2]string
}

func getTests() []Test {
	fid, err := os.Open("tests.toml")
	if err != nil {
		panic(err)
	}
	s, err := ioutil.ReadAll(fid)
	if err != nil {
		panic(err)
	}
	fid.Close()

	type vd struct {
		Test []Test
	}

	var v vd
	if _, err := toml.Decode(string(s), &v); err != nil {
		panic(err)
	}

	logger.Printf("Found %d tests\n", len(v.Test))
	return v.Test
}

// getScanner returns a scanner for reading the contents of a file.
// Snappy compression is handled automatically. The returned closers
// should be closed once the scanner is no longer needed.
func getScanner(f string) (*bufio.Scanner, []io.Closer) {
	var toclose []io.Closer
	var g io.Reader

	h, err := os.Open(f)
	if err != nil {
		panic(err)
	}
	toclose = append(toclose, h)
	g = h

	if strings.HasSuffix(f, ".sz") {
		g = snappy.NewReader(g)
	}

	s := bufio.NewScanner(g)
	return s, toclose
}

// compare panics unless f1 and f2 have identical contents, line by
// line. Snappy compression is handled automatically.
func compare(f1, f2 string) bool {
	s1, tc1 := getScanner(f1)
	s2, tc2 := getScanner(f2)

	for {
		q1 := s1.Scan()
		q2 := s2.Scan()

		if q1 != q2 {
			panic(fmt.Sprintf("files %s and %s have different numbers of lines\n", f1, f2))
		}
		if !q1 {
			break
		}

		v1 := s1.Text()
		v2 := s2.Text()
		if v1 != v2 {
			panic(fmt.Sprintf("%s\nin file %s\ndiffers from\n%v\nin file %s\n", v1, f1, v2, f2))
		}
	}

	if err := s1.Err(); err != nil {
		panic(err)
	}
	if err := s2.Err(); err != nil {
		panic(err)
	}

	for _, x := range tc1 {
		x.Close()
	}
	for _, x := range tc2 {
		x.Close()
	}

	return true
}

func run(tests []Test) {
	for _, t := range tests {
		c := []string{t.Command}
		c = append(c, t.Opts...)
		for _, f := range t.Args {
			c = append(c, path.Join(t.Base, f))
		}
		logger.Printf("%s\n", t.Name)
		logger.Printf("Running command %s\n", c[0])
		logger.Printf("with arguments: %v\n", c[1:])

		cmd := exec.Command(c[0], c[1:len(c)]...)
		cmd.Stderr = os.Stderr

		if t.Stdout != "" {
			outPath := path.Join(t.Base, t.Stdout)
			fid, err := os.Create(outPath)
			if err != nil {
				panic(err)
			}
			cmd.Stdout = fid
			err = cmd.Run()
			fid.Close()
			if err != nil {
				panic(err)
			}
		} else if err := cmd.Run(); err != nil {
			panic(err)
		}

		for _, fp := range t.Files {
			compare(path.Join(t.Base, fp[0]), path.Join(t.Base, fp[1]))
		}

		logger.Printf("done\n\n")
	}
}

func setupLog() {
	fid, err := os.Create("test.log")
	if err != nil {
		panic(err)
	}
	logger = log.New(fid, "", log.Ltime)
}

func main() {
	setupLog()
	tests := getTests()
	run(tests)
}
