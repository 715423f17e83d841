// Package tree は CART 決定木 (分類・回帰) を提供します。
// ランダムフォレストはこのパッケージの Tree を部品として使います。
package tree

import (
	"math"
)

// Node は決定木の1ノード。Feature < 0 のとき葉。
//
// 欠損値 (NaN) は MissingLeft に従って左右どちらかへ送られる。
type Node struct {
	Feature     int
	Threshold   float64
	Left        int
	Right       int
	MissingLeft bool
	// Value は分類ではクラスごとの割合、回帰では平均値1つ
	Value    []float64
	NSamples int
	Impurity float64
	Depth    int
}

// IsLeaf は葉ノードかどうかを返す
func (n *Node) IsLeaf() bool {
	return n.Feature < 0
}

// Tree はノードを配列で保持する学習済みの木。gob でそのまま保存できる。
type Tree struct {
	Nodes     []Node
	NFeatures int
}

// leaf は x が到達する葉を返す
func (t *Tree) leaf(x []float64) *Node {
	n := &t.Nodes[0]
	for !n.IsLeaf() {
		v := x[n.Feature]
		switch {
		case math.IsNaN(v):
			if n.MissingLeft {
				n = &t.Nodes[n.Left]
			} else {
				n = &t.Nodes[n.Right]
			}
		case v <= n.Threshold:
			n = &t.Nodes[n.Left]
		default:
			n = &t.Nodes[n.Right]
		}
	}
	return n
}

// Value は x に対する葉の値を返す
func (t *Tree) Value(x []float64) []float64 {
	return t.leaf(x).Value
}

// Depth は木の深さ (根のみなら0) を返す
func (t *Tree) Depth() int {
	d := 0
	for i := range t.Nodes {
		if t.Nodes[i].Depth > d {
			d = t.Nodes[i].Depth
		}
	}
	return d
}

// NLeaves は葉の数を返す
func (t *Tree) NLeaves() int {
	c := 0
	for i := range t.Nodes {
		if t.Nodes[i].IsLeaf() {
			c++
		}
	}
	return c
}
