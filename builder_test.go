package routekit

import (
	"testing"
)

func TestTreeBuilder_Basic(t *testing.T) {
	tree, err := NewTree().
		Node("home").Done().
		Build()

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tree.Len() != 1 {
		t.Errorf("expected 1 node, got %d", tree.Len())
	}
	if root := tree.Root(DefaultViewport); root == nil || root.Component != "home" {
		t.Errorf("expected root 'home', got %v", root)
	}
}

func TestTreeBuilder_Nested(t *testing.T) {
	profile := &struct{ name string }{"profile"}
	tree, err := NewTree().
		Node("users").Param("id", "7").
			Child("profile").In("main").Instance(profile).End().
			Child("posts").In("side").Residue("latest").End().
			Done().
		Node("chat").In("aside").
			Done().
		Build()

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tree.String() != "users(id=7)/(profile@main+posts@side)+chat@aside" {
		t.Errorf("unexpected tree %q", tree.String())
	}

	users := tree.GetNode("users@default")
	if users == nil {
		t.Fatal("expected node 'users@default'")
	}
	if len(users.Children) != 2 {
		t.Fatalf("expected 2 children, got %d", len(users.Children))
	}

	p := tree.ChildAt(users.ID, "main")
	if p == nil || p.Instance != profile {
		t.Errorf("expected profile instance in main viewport, got %v", p)
	}
	if posts := tree.ChildAt(users.ID, "side"); posts == nil || posts.Residue != "latest" {
		t.Errorf("expected residue 'latest' on posts, got %v", posts)
	}
}

func TestTreeBuilder_End(t *testing.T) {
	root := NewTree().Node("a")
	if root.End() != nil {
		t.Error("expected End on a root node to return nil")
	}
	child := root.Child("b")
	if child.End() != root {
		t.Error("expected End to return the parent builder")
	}
}

func TestTreeBuilder_NodeBuild(t *testing.T) {
	tree, err := NewTree().Node("a").Child("b").End().Build()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tree.String() != "a/b" {
		t.Errorf("expected 'a/b', got %q", tree.String())
	}
}

func TestTreeBuilder_MustBuildPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected MustBuild to panic on an invalid tree")
		}
	}()
	NewTree().Node("a").Done().Node("b").Done().MustBuild()
}
