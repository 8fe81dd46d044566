// Package part is the high-level modelling facade. A Part owns a feature
// tree, adds sketches and solid features to it, and derives mass
// properties from the final solid. An Assembly places parts with rigid
// transforms.
package part
