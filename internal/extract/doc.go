// Package extract locates the main content of an HTML page and turns it
// into plain text.
//
// An Extractor runs an ordered chain of Locators and stops at the first one
// that finds a region. Regions from the wrapper and body locators are
// cleaned of boilerplate on a copy of the subtree before their text is
// collected; landmark regions are taken as they are. The locator that fired
// is reported as the extraction method.
package extract
