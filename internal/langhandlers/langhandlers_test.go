package langhandlers

import "testing"

func TestDetectLanguage(t *testing.T) {
	cases := map[string]string{
		"main.go":     "go",
		"app.py":      "python",
		"widget.tsx":  "typescript",
		"engine.cpp":  "cpp",
		"unknown.xyz": "",
	}
	for path, want := range cases {
		if got := DetectLanguage(path); got != want {
			t.Errorf("DetectLanguage(%q) = %q, want %q", path, got, want)
		}
	}
}

func TestGoHandlerParseFunctions(t *testing.T) {
	src := "package main\n\nfunc Foo(a int) int {\n\tif a > 0 {\n\t\treturn a\n\t}\n\treturn 0\n}\n\nfunc Bar() {\n}\n"
	h, ok := ForFile("x.go")
	if !ok {
		t.Fatal("expected go handler registered")
	}
	spans := h.ParseFunctions(src)
	if len(spans) != 2 {
		t.Fatalf("got %d spans, want 2: %+v", len(spans), spans)
	}
	if spans[0].Name != "Foo" || spans[0].StartLine != 3 {
		t.Fatalf("Foo span = %+v", spans[0])
	}
	if spans[1].Name != "Bar" {
		t.Fatalf("Bar span = %+v", spans[1])
	}
}

func TestPythonHandlerIndentationEnd(t *testing.T) {
	src := "def foo():\n    x = 1\n    return x\n\ndef bar():\n    pass\n"
	h, ok := ForFile("x.py")
	if !ok {
		t.Fatal("expected python handler registered")
	}
	spans := h.ParseFunctions(src)
	if len(spans) != 2 {
		t.Fatalf("got %d spans, want 2: %+v", len(spans), spans)
	}
	if spans[0].Name != "foo" || spans[0].EndLine != 3 {
		t.Fatalf("foo span = %+v", spans[0])
	}
	if spans[1].Name != "bar" {
		t.Fatalf("bar span = %+v", spans[1])
	}
}

func TestCppHandlerClassQualified(t *testing.T) {
	src := "void MyClass::doWork() {\n    return;\n}\n"
	h, _ := ForFile("x.cpp")
	spans := h.ParseFunctions(src)
	if len(spans) != 1 {
		t.Fatalf("got %d spans, want 1", len(spans))
	}
	if spans[0].Class != "MyClass" || spans[0].Name != "doWork" {
		t.Fatalf("span = %+v", spans[0])
	}
}
